package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"trivia-party/internal/domain"

	"go.uber.org/zap"
)

// Record keys shared by every RecordStore implementation.
const (
	KeyTeams              = "trivia_teams"
	KeySelectedCategories = "selected_categories"
	KeyPickHistory        = "pick_history"
	KeyCompletedQuestions = "completed_questions"
)

// RecordStore abstracts where serialized session records live (in-memory, Redis, SQL).
type RecordStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Records is the JSON gateway in front of a RecordStore. Reads never fail: a missing
// or corrupt record decodes to the zero value. The first failed write switches the
// gateway to memory-only for the rest of the session.
type Records struct {
	store RecordStore
	log   *zap.Logger

	mu       sync.Mutex
	degraded bool
}

// NewRecords wraps store; a nil store keeps everything in memory.
func NewRecords(store RecordStore, log *zap.Logger) *Records {
	if log == nil {
		log = zap.NewNop()
	}
	return &Records{store: store, log: log}
}

// Load decodes the record into v and reports whether a valid record was found.
func (r *Records) Load(ctx context.Context, key string, v any) bool {
	if r == nil || r.store == nil {
		return false
	}
	data, ok, err := r.store.Load(ctx, key)
	if err != nil {
		r.log.Warn("record load failed",
			zap.String("key", key),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)))
		return false
	}
	if !ok || len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.log.Warn("record corrupt, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Save encodes v under key. Errors are logged and never returned.
func (r *Records) Save(ctx context.Context, key string, v any) {
	if r == nil || r.store == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Error("record encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.Save(ctx, key, data); err != nil {
		r.degradeLocked(key, err)
	}
}

// Remove deletes the record under key.
func (r *Records) Remove(ctx context.Context, key string) {
	if r == nil || r.store == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded {
		return
	}
	if err := r.store.Delete(ctx, key); err != nil {
		r.degradeLocked(key, err)
	}
}

func (r *Records) degradeLocked(key string, err error) {
	r.degraded = true
	r.log.Warn("record write failed, continuing in memory",
		zap.String("key", key),
		zap.Error(fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)))
}

// Degraded reports whether writes have been abandoned after a storage failure.
func (r *Records) Degraded() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// LoadTeams returns the persisted team list, or nil when absent.
func LoadTeams(ctx context.Context, records *Records) []domain.Team {
	var teams []domain.Team
	if !records.Load(ctx, KeyTeams, &teams) {
		return nil
	}
	return teams
}
