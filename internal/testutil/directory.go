// Package testutil holds in-memory collaborators shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Imellstorm/wptest/internal/types"
)

// Directory is an in-memory participant directory.
type Directory struct {
	mu           sync.RWMutex
	participants []types.Participant
	secrets      map[string]string
}

// NewDirectory registers the given names with fresh IDs, in order.
func NewDirectory(names ...string) *Directory {
	d := &Directory{secrets: make(map[string]string)}
	for _, name := range names {
		d.Add(name)
	}
	return d
}

// Add registers name and returns the new participant with its secret.
func (d *Directory) Add(name string) types.Participant {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := types.Participant{ID: uuid.New().String(), Name: name}
	d.participants = append(d.participants, p)
	d.secrets[p.ID] = uuid.New().String()

	p.Secret = d.secrets[p.ID]
	return p
}

func (d *Directory) Resolve(_ context.Context, name string) (types.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.participants {
		if p.Name == name {
			return p, nil
		}
	}
	return types.Participant{}, types.Errorf(types.ErrUnknownParticipant, "participant %s not found", name)
}

func (d *Directory) Authenticate(ctx context.Context, name, secret string) (types.Participant, error) {
	p, err := d.Resolve(ctx, name)
	if err != nil || secret == "" || d.Secret(name) != secret {
		return types.Participant{}, types.Errorf(types.ErrInvalidCredentials, "invalid name or secret")
	}
	return p, nil
}

// Rename changes a participant's name in place.
func (d *Directory) Rename(_ context.Context, name, newName string) (*types.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.participants {
		if d.participants[i].Name == name {
			d.participants[i].Name = newName
			p := d.participants[i]
			return &p, nil
		}
	}
	return nil, types.Errorf(types.ErrUnknownParticipant, "participant %s not found", name)
}

func (d *Directory) List(_ context.Context) ([]types.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]types.Participant, len(d.participants))
	copy(out, d.participants)
	return out, nil
}

// Secret returns the secret issued to name, or "" when name is unknown.
func (d *Directory) Secret(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.participants {
		if p.Name == name {
			return d.secrets[p.ID]
		}
	}
	return ""
}

// MustResolve returns the participant registered under name or panics.
func (d *Directory) MustResolve(name string) types.Participant {
	p, err := d.Resolve(context.Background(), name)
	if err != nil {
		panic(err)
	}
	return p
}
