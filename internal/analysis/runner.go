package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"propdesk/internal/domain"
	"propdesk/internal/ruleset"
)

// ErrSuperseded is returned for a request that a newer one replaced before it
// finished.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

// Runner schedules analyses off the caller's goroutine. Only the latest
// request's result is delivered; older ones are discarded.
type Runner struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	clock  func() time.Time
	opts   Options
	logger *zap.Logger
}

func NewRunner(clock func() time.Time, opts Options, logger *zap.Logger) *Runner {
	if clock == nil {
		clock = time.Now
	}
	return &Runner{clock: clock, opts: opts, logger: logger}
}

type Outcome struct {
	Result Result
	Err    error
}

// Submit starts an analysis of entities and returns a channel receiving
// exactly one Outcome. Submitting again supersedes any pending request.
func (r *Runner) Submit(ctx context.Context, entities []domain.Entity, rules ruleset.KindRules) <-chan Outcome {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	snapshot := append([]domain.Entity(nil), entities...)
	out := make(chan Outcome, 1)
	go func() {
		defer cancel()
		res := Run(snapshot, rules, r.clock(), r.opts)
		if err := ctx.Err(); err != nil {
			out <- Outcome{Err: r.discard(gen, err)}
			return
		}
		if !r.isCurrent(gen) {
			out <- Outcome{Err: r.discard(gen, ErrSuperseded)}
			return
		}
		r.logger.Debug("analysis complete",
			zap.String("kind", string(rules.Kind)),
			zap.Int("entities", len(snapshot)),
			zap.Int("recommendations", len(res.Recommendations)))
		out <- Outcome{Result: res}
	}()
	return out
}

func (r *Runner) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}

func (r *Runner) discard(gen uint64, err error) error {
	if errors.Is(err, context.Canceled) && !r.isCurrent(gen) {
		err = ErrSuperseded
	}
	r.logger.Debug("analysis result discarded", zap.Uint64("generation", gen), zap.Error(err))
	return err
}
