package insight

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/weekpulse/internal/config"
	"github.com/fyrsmithlabs/weekpulse/internal/logging"
	"github.com/fyrsmithlabs/weekpulse/internal/redact"
	"github.com/fyrsmithlabs/weekpulse/internal/reflection"
	"github.com/fyrsmithlabs/weekpulse/internal/snapshot"
	"github.com/fyrsmithlabs/weekpulse/internal/task"
)

const instrumentationName = "github.com/fyrsmithlabs/weekpulse/internal/insight"

// Completer is the remote engine. *Client implements it.
type Completer interface {
	Complete(ctx context.Context, comp Completion) (string, error)
}

// Generator picks an engine and produces insights.
type Generator struct {
	remote     Completer
	rules      RuleEngine
	scrubber   *redact.Scrubber
	defaultKey config.Secret
	logger     *logging.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. Remote failures are logged at warn.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = logging.Wrap(l)
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithScrubber redacts secrets from reflection and task text before it is
// sent to the remote engine.
func WithScrubber(s *redact.Scrubber) Option {
	return func(g *Generator) { g.scrubber = s }
}

// WithDefaultKey sets the credential used when the profile has none.
func WithDefaultKey(key config.Secret) Option {
	return func(g *Generator) { g.defaultKey = key }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a generator. remote may be nil, in which case only the
// rule engine is used.
func NewGenerator(remote Completer, opts ...Option) *Generator {
	g := &Generator{
		remote:  remote,
		logger:  logging.NewNop(),
		metrics: NewMetrics(),
		tracer:  otel.Tracer(instrumentationName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rules = RuleEngine{Now: g.now}
	return g
}

// Generate produces an insight for one week.
//
// With a credential the remote engine is tried first. If it fails, or there
// is no credential, the rule engine answers when profile.AllowRuleFallback is
// set. Otherwise the error wraps one of ErrCredentialMissing, ErrTransport,
// ErrNonSuccessStatus or ErrMalformedResponse.
func (g *Generator) Generate(ctx context.Context, profile reflection.Profile, metrics snapshot.Snapshot, in reflection.Input, tasks []task.Task) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "insight.generate")
	defer span.End()

	key := profile.APIKey
	if !key.IsSet() {
		key = g.defaultKey
	}
	span.SetAttributes(
		attribute.Bool("credential", key.IsSet()),
		attribute.Bool("allow_fallback", profile.AllowRuleFallback),
		attribute.Int("tasks", len(tasks)),
	)

	var cause error
	if key.IsSet() && g.remote != nil {
		content, err := g.callRemote(ctx, key, profile, metrics, in, tasks)
		if err == nil {
			g.metrics.GenerationsTotal.WithLabelValues(string(EngineRemote), "success").Inc()
			span.SetAttributes(attribute.String("engine", string(EngineRemote)))
			ins := remoteInsight(content, g.now())
			return Result{Insight: ins, Engine: EngineRemote}, nil
		}
		cause = err
		g.metrics.RemoteFailuresTotal.WithLabelValues(Reason(err)).Inc()
		span.RecordError(err)
		g.logger.Warn(ctx, "remote insight failed",
			zap.String("reason", Reason(err)),
			zap.Bool("fallback", profile.AllowRuleFallback),
			zap.Error(err))
	}

	if !profile.AllowRuleFallback {
		switch {
		case cause != nil:
		case key.IsSet():
			cause = fmt.Errorf("%w: no remote client configured", ErrTransport)
		default:
			cause = ErrCredentialMissing
		}
		g.metrics.GenerationsTotal.WithLabelValues("none", "error").Inc()
		span.SetStatus(codes.Error, cause.Error())
		return Result{Cause: cause}, fmt.Errorf("generating insight: %w", cause)
	}

	ins := g.rules.Build(metrics, in)
	outcome := "success"
	if cause != nil {
		outcome = "fallback"
	}
	g.metrics.GenerationsTotal.WithLabelValues(string(EngineRuleBased), outcome).Inc()
	span.SetAttributes(
		attribute.String("engine", string(EngineRuleBased)),
		attribute.Bool("fallback", cause != nil),
	)
	return Result{Insight: ins, Engine: EngineRuleBased, Fallback: cause != nil, Cause: cause}, nil
}

func (g *Generator) callRemote(ctx context.Context, key config.Secret, profile reflection.Profile, metrics snapshot.Snapshot, in reflection.Input, tasks []task.Task) (string, error) {
	start := time.Now()
	defer func() { g.metrics.RemoteDuration.Observe(time.Since(start).Seconds()) }()

	req := Request{
		Profile:    PersonaTone{Persona: profile.Persona, Tone: profile.Tone},
		Metrics:    metrics,
		Reflection: g.scrubReflection(ctx, in),
		Tasks:      g.scrubTasks(ctx, tasks),
	}
	return g.remote.Complete(ctx, Completion{
		APIKey:  key.Value(),
		Model:   profile.PreferredModel,
		Request: req,
	})
}

func (g *Generator) scrubReflection(ctx context.Context, in reflection.Input) reflection.Input {
	if g.scrubber == nil {
		return in
	}
	in.Wins = g.scrub(ctx, in.Wins)
	in.Challenges = g.scrub(ctx, in.Challenges)
	in.Learnings = g.scrub(ctx, in.Learnings)
	in.FocusNextWeek = g.scrub(ctx, in.FocusNextWeek)
	in.Notes = g.scrub(ctx, in.Notes)
	return in
}

func (g *Generator) scrubTasks(ctx context.Context, tasks []task.Task) []task.Task {
	if g.scrubber == nil || len(tasks) == 0 {
		return tasks
	}
	out := make([]task.Task, len(tasks))
	for i, t := range tasks {
		t.Title = g.scrub(ctx, t.Title)
		t.Notes = g.scrub(ctx, t.Notes)
		out[i] = t
	}
	return out
}

func (g *Generator) scrub(ctx context.Context, text string) string {
	out, findings := g.scrubber.Scrub(text)
	if len(findings) > 0 {
		rules := make([]string, 0, len(findings))
		for _, f := range findings {
			rules = append(rules, f.RuleID)
		}
		g.logger.Info(ctx, "redacted secrets before remote call", zap.Strings("rules", rules))
	}
	return out
}
