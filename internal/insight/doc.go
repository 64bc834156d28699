// Package insight turns a weekly snapshot and reflection into coaching
// guidance.
//
// Two engines exist. The rule engine is deterministic and always available.
// The remote engine sends the week to an OpenAI-compatible chat-completion
// endpoint. Generator chooses between them: remote first when a credential is
// present, then the rule engine if the profile allows fallback.
//
// Usage:
//
//	client := insight.NewClient(insight.ClientConfig{BaseURL: cfg.Insight.BaseURL})
//	gen := insight.NewGenerator(client, insight.WithLogger(logger))
//	res, err := gen.Generate(ctx, profile, snap, reflection, tasks)
//	if res.Fallback {
//	    // remote failed; res.Cause says why
//	}
package insight
