package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/pkg/vision"
)

// MaxModels is the number of models a cascade may try.
const MaxModels = 2

// outcome is the terminal state of one model attempt.
type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeExhausted
	outcomeFailed
)

// Attempt records one model call.
type Attempt struct {
	Model      string
	StatusCode int
	Err        error
}

// Cascade tries an ordered list of models, moving to the next only when
// the previous one reports rate limiting or exhausted quota.
type Cascade struct {
	completer vision.Completer
	models    []string
	timeout   time.Duration
	secrets   []string
}

// NewCascade validates the model list and returns a Cascade.
func NewCascade(completer vision.Completer, models []string, timeout time.Duration, secrets ...string) (*Cascade, error) {
	if len(models) == 0 || len(models) > MaxModels {
		return nil, apperr.Newf(apperr.KindConfig, "vision.models must list 1 to %d models, got %d", MaxModels, len(models))
	}
	for i, m := range models {
		if m == "" {
			return nil, apperr.Newf(apperr.KindConfig, "vision.models[%d] is empty", i)
		}
	}
	return &Cascade{
		completer: completer,
		models:    append([]string(nil), models...),
		timeout:   timeout,
		secrets:   secrets,
	}, nil
}

// Models returns the ordered model identifiers.
func (c *Cascade) Models() []string {
	return append([]string(nil), c.models...)
}

// Run sends req to each model in order. Models are tried strictly one after
// another; the next model is only called after the previous one returned a
// rate-limit or quota status.
func (c *Cascade) Run(ctx context.Context, req vision.Request) (*vision.Response, []Attempt, error) {
	attempts := make([]Attempt, 0, len(c.models))

	for _, m := range c.models {
		req.Model = m
		resp, state, err := c.try(ctx, req)
		attempts = append(attempts, Attempt{Model: m, StatusCode: vision.StatusCode(err), Err: err})

		switch state {
		case outcomeSucceeded:
			if resp.Model == "" {
				resp.Model = m
			}
			return resp, attempts, nil
		case outcomeExhausted:
			zap.L().Warn("extract: model unavailable, trying next",
				zap.String("model", m),
				zap.Int("status", vision.StatusCode(err)),
			)
			continue
		default:
			return nil, attempts, c.upstream(m, err)
		}
	}

	return nil, attempts, apperr.RateLimited("all vision models are rate limited or out of quota")
}

func (c *Cascade) try(ctx context.Context, req vision.Request) (*vision.Response, outcome, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.completer.Complete(ctx, req)
	switch {
	case err == nil && resp != nil:
		return resp, outcomeSucceeded, nil
	case err == nil:
		return nil, outcomeFailed, eris.New("vision: empty response")
	case vision.IsCapacity(err):
		return nil, outcomeExhausted, err
	default:
		return nil, outcomeFailed, err
	}
}

func (c *Cascade) upstream(model string, err error) error {
	var msg string
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = fmt.Sprintf("vision model %s timed out", model)
	case vision.StatusCode(err) != 0:
		var se *vision.StatusError
		errors.As(err, &se)
		msg = fmt.Sprintf("vision model %s returned status %d: %s", model, se.StatusCode, se.Message)
	default:
		msg = fmt.Sprintf("vision model %s failed: %v", model, err)
	}
	return apperr.Wrap(apperr.KindUpstream, err, apperr.Redact(msg, c.secrets...))
}
