package validator

import (
	"context"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/GoPolymarket/swapgate/internal/pkg/metrics"
)

// Result is the outcome of a pipeline run. RejectedBy is empty when the
// order was admitted.
type Result struct {
	Admitted   bool
	RejectedBy string
	Err        error
}

// Pipeline evaluates validators in order and stops at the first rejection.
type Pipeline struct {
	validators []Validator
}

func NewPipeline(validators ...Validator) *Pipeline {
	return &Pipeline{validators: validators}
}

func (p *Pipeline) Len() int {
	return len(p.validators)
}

// Evaluate runs every validator against the order. Errors and context
// expiry reject the order (fail closed); they never propagate as a panic or
// abort other orders.
func (p *Pipeline) Evaluate(ctx context.Context, order *model.Order, vc *Context) Result {
	base := vc.Logger
	if base == nil {
		base = logger.Get()
	}

	for _, v := range p.validators {
		name := v.Name()
		log := logger.Named(base, "validator", name)

		if err := ctx.Err(); err != nil {
			log.Warn("validator skipped, evaluation deadline passed", slog.Bool("result", false), slog.String("error", err.Error()))
			metrics.ValidatorRejects.WithLabelValues(name, "timeout").Inc()
			return Result{RejectedBy: name, Err: err}
		}

		ok, err := v.Evaluate(ctx, order, vc.withLogger(log))
		if err != nil {
			log.Warn("validator failed, rejecting order", slog.Bool("result", false), slog.String("error", err.Error()))
			metrics.ValidatorRejects.WithLabelValues(name, "error").Inc()
			return Result{RejectedBy: name, Err: err}
		}
		if !ok {
			metrics.ValidatorRejects.WithLabelValues(name, "rejected").Inc()
			return Result{RejectedBy: name}
		}
	}
	return Result{Admitted: true}
}
