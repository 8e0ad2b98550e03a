package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/errors"
	"github.com/uber/ulsp-bridge/src/ulsp/mapper"
	"github.com/uber/ulsp-bridge/src/ulsp/model"
)

const _gaugeActive = "active"

// Repository is an entity-scoped repository.
type Repository interface {
	Get(ctx context.Context, key entity.SessionKey) (*entity.Session, error)
	GetAll(ctx context.Context) ([]*entity.Session, error)
	Set(ctx context.Context, s *entity.Session) error
	// Touch records a use of the session stored under key.
	Touch(ctx context.Context, key entity.SessionKey, at time.Time) error
	Delete(ctx context.Context, key entity.SessionKey) error
	// CompareAndDelete removes the session stored under key only if it is the session with the given id.
	CompareAndDelete(ctx context.Context, key entity.SessionKey, id uuid.UUID) (bool, error)
	SessionCount(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[string]*model.Session
	stats    tally.Scope
}

// New returns a repository to a key-value Session data store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[string]*model.Session),
		stats:    stats.SubScope("sessions"),
	}
}

// Get returns the Session associated with the given key.
func (r *repository) Get(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := mapper.SessionKeyToModelKey(key)
	f, ok := r.memstore[k]
	if !ok {
		return nil, &errors.SessionNotFoundError{Key: k}
	}
	return mapper.ModelToSession(f)
}

// GetAll returns every stored Session ordered by key.
func (r *repository) GetAll(ctx context.Context) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.memstore))
	for k := range r.memstore {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	found := make([]*entity.Session, 0, len(keys))
	for _, k := range keys {
		s, err := mapper.ModelToSession(r.memstore[k])
		if err != nil {
			return nil, err
		}
		found = append(found, s)
	}
	return found, nil
}

// Set stores the Session under its key, replacing any previous one.
func (r *repository) Set(ctx context.Context, f *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f == nil {
		return errors.New("can't save nil session")
	}
	r.memstore[mapper.SessionKeyToModelKey(f.Key)] = mapper.SessionToModel(f)
	r.updateGauge()
	return nil
}

func (r *repository) Touch(ctx context.Context, key entity.SessionKey, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := mapper.SessionKeyToModelKey(key)
	f, ok := r.memstore[k]
	if !ok {
		return &errors.SessionNotFoundError{Key: k}
	}
	if at.After(f.LastUsed) {
		f.LastUsed = at
	}
	return nil
}

// Delete removes the Session associated with the given key.
func (r *repository) Delete(ctx context.Context, key entity.SessionKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, mapper.SessionKeyToModelKey(key))
	r.updateGauge()
	return nil
}

func (r *repository) CompareAndDelete(ctx context.Context, key entity.SessionKey, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := mapper.SessionKeyToModelKey(key)
	f, ok := r.memstore[k]
	if !ok || f.UUID != id {
		return false, nil
	}
	delete(r.memstore, k)
	r.updateGauge()
	return true, nil
}

// SessionCount returns the total count of active sessions.
func (r *repository) SessionCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}

func (r *repository) updateGauge() {
	r.stats.Gauge(_gaugeActive).Update(float64(len(r.memstore)))
}
