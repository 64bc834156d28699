package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
)

// storedProfile is the persisted form. The credential is kept in clear text
// here because Profile redacts it on marshal.
type storedProfile struct {
	Persona           *string    `json:"persona,omitempty"`
	Tone              *string    `json:"tone,omitempty"`
	APIKey            string     `json:"openAIApiKey,omitempty"`
	PreferredModel    string     `json:"preferredModel,omitempty"`
	AllowRuleFallback *bool      `json:"allowRuleFallback,omitempty"`
	LastUpdated       *time.Time `json:"lastUpdated,omitempty"`
}

// ProfileStore owns the single reflection profile.
type ProfileStore struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	profile Profile
}

// ProfileOption configures a ProfileStore.
type ProfileOption func(*ProfileStore)

// WithProfileLogger sets the logger used for persistence failures.
func WithProfileLogger(l *zap.Logger) ProfileOption {
	return func(s *ProfileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProfileClock overrides the clock used to stamp LastUpdated.
func WithProfileClock(now func() time.Time) ProfileOption {
	return func(s *ProfileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewProfileStore creates a store and loads the persisted profile.
// A missing or unreadable profile yields the default.
func NewProfileStore(ctx context.Context, kv storage.KV, opts ...ProfileOption) *ProfileStore {
	s := &ProfileStore{
		kv:     kv,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.profile = s.load(ctx)
	return s
}

// Get returns the current profile.
func (s *ProfileStore) Get() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Reload re-reads the profile from storage.
func (s *ProfileStore) Reload(ctx context.Context) Profile {
	p := s.load(ctx)
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return p
}

// Update merges patch into the profile, stamps LastUpdated and persists.
// It fails only when the patch is invalid; a storage failure is logged and
// the in-memory update is kept.
func (s *ProfileStore) Update(ctx context.Context, patch Patch) (Profile, error) {
	if err := patch.Validate(); err != nil {
		return Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.profile.Apply(patch)
	next.LastUpdated = s.now().UTC()
	s.profile = next
	s.persist(ctx, next)
	return next, nil
}

func (s *ProfileStore) load(ctx context.Context) Profile {
	p := DefaultProfile(s.now())

	data, err := s.kv.Get(ctx, storage.KeyProfile)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("loading profile, using defaults", zap.Error(err))
		}
		return p
	}

	var stored storedProfile
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("profile is not valid JSON, using defaults", zap.Error(err))
		return p
	}

	if stored.Persona != nil {
		p.Persona = *stored.Persona
	}
	if stored.Tone != nil {
		p.Tone = *stored.Tone
	}
	p.APIKey = config.Secret(stored.APIKey)
	p.PreferredModel = stored.PreferredModel
	if stored.AllowRuleFallback != nil {
		p.AllowRuleFallback = *stored.AllowRuleFallback
	}
	if stored.LastUpdated != nil && !stored.LastUpdated.IsZero() {
		p.LastUpdated = stored.LastUpdated.UTC()
	}
	return p
}

func (s *ProfileStore) persist(ctx context.Context, p Profile) {
	stored := storedProfile{
		Persona:           &p.Persona,
		Tone:              &p.Tone,
		APIKey:            p.APIKey.Value(),
		PreferredModel:    p.PreferredModel,
		AllowRuleFallback: &p.AllowRuleFallback,
		LastUpdated:       &p.LastUpdated,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		s.logger.Error("encoding profile", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, storage.KeyProfile, data); err != nil {
		s.logger.Error("persisting profile", zap.Error(err))
	}
}
