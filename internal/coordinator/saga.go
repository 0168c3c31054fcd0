package coordinator

import (
	"context"
	"log/slog"
)

// Step represents a single unit of work in a workflow.
// Each step must have a compensating action to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator runs a collection of Steps as one saga.
type Orchestrator struct {
	name  string
	steps []Step
}

func NewOrchestrator(name string, steps ...Step) *Orchestrator {
	return &Orchestrator{name: name, steps: steps}
}

// Start runs the steps sequentially. If a step fails, every previously
// successful step is compensated in reverse order. The failed step is
// expected to leave no partial effects behind.
func (o *Orchestrator) Start(ctx context.Context) error {
	var done []Step

	for _, step := range o.steps {
		slog.DebugContext(ctx, "executing step", "saga", o.name, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			slog.WarnContext(ctx, "step failed, starting rollback", "saga", o.name, "step", step.Name(), "error", err)
			o.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}

	slog.InfoContext(ctx, "saga completed", "saga", o.name, "steps", len(done))
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Step) {
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating step", "saga", o.name, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to compensate step", "saga", o.name, "step", step.Name(), "error", err)
		}
	}
}
