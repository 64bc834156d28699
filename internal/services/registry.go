package services

import (
	"github.com/fyrsmithlabs/weekpulse/internal/goals"
	"github.com/fyrsmithlabs/weekpulse/internal/history"
	"github.com/fyrsmithlabs/weekpulse/internal/insight"
	"github.com/fyrsmithlabs/weekpulse/internal/redact"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/storage"
	"github.com/fyrsmithlabs/weekpulse/internal/weekly"
)

// Registry provides access to all weekpulse services.
type Registry interface {
	Weekly() *weekly.Service
	History() *history.Store
	Profiles() *reflection.ProfileStore
	Goals() *goals.Tracker
	Generator() *insight.Generator
	Scrubber() *redact.Scrubber
	Storage() storage.KV
}

// Options configures the registry with service instances.
type Options struct {
	Weekly    *weekly.Service
	History   *history.Store
	Profiles  *reflection.ProfileStore
	Goals     *goals.Tracker
	Generator *insight.Generator
	Scrubber  *redact.Scrubber
	Storage   storage.KV
}

type registry struct {
	weekly    *weekly.Service
	history   *history.Store
	profiles  *reflection.ProfileStore
	goals     *goals.Tracker
	generator *insight.Generator
	scrubber  *redact.Scrubber
	storage   storage.KV
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		weekly:    opts.Weekly,
		history:   opts.History,
		profiles:  opts.Profiles,
		goals:     opts.Goals,
		generator: opts.Generator,
		scrubber:  opts.Scrubber,
		storage:   opts.Storage,
	}
}

func (r *registry) Weekly() *weekly.Service            { return r.weekly }
func (r *registry) History() *history.Store            { return r.history }
func (r *registry) Profiles() *reflection.ProfileStore { return r.profiles }
func (r *registry) Goals() *goals.Tracker              { return r.goals }
func (r *registry) Generator() *insight.Generator      { return r.generator }
func (r *registry) Scrubber() *redact.Scrubber         { return r.scrubber }
func (r *registry) Storage() storage.KV                { return r.storage }
