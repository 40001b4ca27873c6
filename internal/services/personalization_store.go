package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
	"github.com/outboundiq/personalize-backend/internal/types"
)

// PersonalizationStore merge-updates per-(user, url) template outputs. The
// read-merge-write is not atomic at the storage layer, so each (user, url)
// key holds a mutex for the duration of its merge critical section.
type PersonalizationStore interface {
	MergePersonalizations(ctx context.Context, userID uuid.UUID, url string, updates map[string]string) (*types.PersonalizationCache, error)
	Get(ctx context.Context, userID uuid.UUID, url string) (*types.PersonalizationCache, error)
}

type personalizationStore struct {
	log  *logger.Logger
	repo repos.PersonalizationCacheRepo
	keys keyedMutex
}

func NewPersonalizationStore(repo repos.PersonalizationCacheRepo, baseLog *logger.Logger) PersonalizationStore {
	return &personalizationStore{
		log:  baseLog.With("service", "PersonalizationStore"),
		repo: repo,
	}
}

func (s *personalizationStore) MergePersonalizations(ctx context.Context, userID uuid.UUID, url string, updates map[string]string) (*types.PersonalizationCache, error) {
	unlock := s.keys.lock(userID.String() + "|" + url)
	defer unlock()

	existing, err := s.repo.Get(ctx, nil, userID, url)
	if err != nil {
		return nil, err
	}

	merged := datatypes.JSONMap{}
	if existing != nil {
		for k, v := range existing.Personalizations {
			merged[k] = v
		}
	}
	// Updates win on key conflict; untouched keys survive.
	for k, v := range updates {
		merged[k] = v
	}

	row := &types.PersonalizationCache{
		UserID:           userID,
		URL:              url,
		Personalizations: merged,
		CreatedAt:        time.Now(),
	}
	if existing != nil {
		row.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, nil, row); err != nil {
		return nil, err
	}
	s.log.Debug("Merged personalizations", "user_id", userID, "url", url, "keys", len(updates))
	return row, nil
}

func (s *personalizationStore) Get(ctx context.Context, userID uuid.UUID, url string) (*types.PersonalizationCache, error) {
	return s.repo.Get(ctx, nil, userID, url)
}

// keyedMutex hands out one mutex per string key. Keys are never evicted; the
// key space here is bounded by the URLs of a single export run.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*sync.Mutex)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &sync.Mutex{}
		km.locks[key] = l
	}
	km.mu.Unlock()

	l.Lock()
	return l.Unlock
}
