package types

import "context"

// Participant is a trader as known to the directory. State is keyed by ID so
// it survives a rename.
type Participant struct {
	ID   string `json:"participant_id"`
	Name string `json:"name"`
	// Set only when the participant is created; it is never stored in clear
	Secret string `json:"secret,omitempty"`
}

// Directory resolves participant names. Resolve fails with
// ErrUnknownParticipant when the name is not registered.
type Directory interface {
	Resolve(ctx context.Context, name string) (Participant, error)
	List(ctx context.Context) ([]Participant, error)
}
