package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
)

var fixedNow = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool     { return &b }

type failingKV struct{ storage.KV }

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		wantErr bool
	}{
		{"empty is valid", Input{}, false},
		{"full", Input{Wins: "shipped", Mood: MoodHigh, Energy: EnergyCharged}, false},
		{"bad mood", Input{Mood: "ecstatic"}, true},
		{"bad energy", Input{Energy: "wired"}, true},
		{"wins too long", Input{Wins: strings.Repeat("x", 2001)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfile_MarshalRedactsKey(t *testing.T) {
	p := DefaultProfile(fixedNow)
	p.APIKey = "sk-secret-value"

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret-value")
	assert.Contains(t, string(data), "[REDACTED]")
}

func TestProfileStore_DefaultsWhenMissing(t *testing.T) {
	s := NewProfileStore(context.Background(), storage.NewMemory(), WithProfileClock(clock))

	p := s.Get()
	assert.Equal(t, "INTJ", p.Persona)
	assert.Equal(t, "direct", p.Tone)
	assert.True(t, p.AllowRuleFallback)
	assert.False(t, p.APIKey.IsSet())
	assert.Equal(t, fixedNow, p.LastUpdated)
}

func TestProfileStore_DefaultsWhenCorrupt(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), storage.KeyProfile, []byte("{not json")))
	log := logging.NewTestLogger()

	s := NewProfileStore(context.Background(), kv, WithProfileClock(clock), WithProfileLogger(log.Underlying()))

	assert.Equal(t, "INTJ", s.Get().Persona)
	log.AssertLogged(t, zapcore.WarnLevel, "not valid JSON")
}

func TestProfileStore_MergesStoredOverDefaults(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(context.Background(), storage.KeyProfile,
		[]byte(`{"tone":"gentle","allowRuleFallback":false,"openAIApiKey":"sk-abc"}`)))

	p := NewProfileStore(context.Background(), kv, WithProfileClock(clock)).Get()

	assert.Equal(t, "INTJ", p.Persona, "persona falls back to default")
	assert.Equal(t, "gentle", p.Tone)
	assert.False(t, p.AllowRuleFallback)
	assert.Equal(t, "sk-abc", p.APIKey.Value())
	assert.Equal(t, fixedNow, p.LastUpdated, "missing lastUpdated is filled")
}

func TestProfileStore_UpdatePersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	later := fixedNow.Add(time.Hour)
	now := fixedNow
	s := NewProfileStore(ctx, kv, WithProfileClock(func() time.Time { return now }))

	now = later
	p, err := s.Update(ctx, Patch{
		Persona:           strPtr("ENFP"),
		APIKey:            strPtr("sk-new"),
		AllowRuleFallback: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "ENFP", p.Persona)
	assert.Equal(t, "direct", p.Tone)
	assert.Equal(t, later, p.LastUpdated)

	reloaded := NewProfileStore(ctx, kv, WithProfileClock(clock)).Get()
	assert.Equal(t, "ENFP", reloaded.Persona)
	assert.Equal(t, "sk-new", reloaded.APIKey.Value())
	assert.False(t, reloaded.AllowRuleFallback)
	assert.Equal(t, later, reloaded.LastUpdated)
}

func TestProfileStore_UpdateClearsKey(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore(ctx, storage.NewMemory(), WithProfileClock(clock))
	_, err := s.Update(ctx, Patch{APIKey: strPtr("sk-x")})
	require.NoError(t, err)

	p, err := s.Update(ctx, Patch{APIKey: strPtr("")})
	require.NoError(t, err)
	assert.False(t, p.APIKey.IsSet())
}

func TestProfileStore_UpdateRejectsInvalidPatch(t *testing.T) {
	s := NewProfileStore(context.Background(), storage.NewMemory(), WithProfileClock(clock))

	_, err := s.Update(context.Background(), Patch{Persona: strPtr(strings.Repeat("x", 40))})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "INTJ", s.Get().Persona)
}

func TestProfileStore_PersistFailureKeepsUpdate(t *testing.T) {
	log := logging.NewTestLogger()
	kv := failingKV{KV: storage.NewMemory()}
	s := NewProfileStore(context.Background(), kv, WithProfileClock(clock), WithProfileLogger(log.Underlying()))

	p, err := s.Update(context.Background(), Patch{Tone: strPtr("warm")})
	require.NoError(t, err)
	assert.Equal(t, "warm", p.Tone)
	assert.Equal(t, "warm", s.Get().Tone)
	log.AssertLogged(t, zapcore.ErrorLevel, "persisting profile")
}
