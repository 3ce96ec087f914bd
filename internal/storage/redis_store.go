package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const recordKeyPrefix = "barter:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(participantID string, slot Slot) string {
	return recordKeyPrefix + participantID + ":" + string(slot)
}

func (r *RedisStore) Load(ctx context.Context, participantID string, slot Slot) ([]byte, error) {
	blob, err := r.client.Get(ctx, recordKey(participantID, slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return blob, nil
}

func (r *RedisStore) Save(ctx context.Context, participantID string, slot Slot, blob []byte) error {
	if err := r.client.Set(ctx, recordKey(participantID, slot), blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, participantID string, slot Slot) error {
	if err := r.client.Del(ctx, recordKey(participantID, slot)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Apply sends all mutations in a MULTI/EXEC block.
func (r *RedisStore) Apply(ctx context.Context, mutations []Mutation) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range mutations {
			key := recordKey(m.ParticipantID, m.Slot)
			if m.Delete {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, m.Blob, 0)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis exec: %w", err)
	}
	return nil
}
