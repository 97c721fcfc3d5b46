package badgeaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badgedomain "github.com/Black-And-White-Club/rota-badges/app/modules/badge/domain"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/uptrace/bun"
)

// DefaultTimeout bounds a single channel attempt.
const DefaultTimeout = 5 * time.Second

// Operation is a data operation the selector routes.
type Operation string

const (
	OpReadMembers    Operation = "read_members"
	OpReadActivity   Operation = "read_activity"
	OpReadAwards     Operation = "read_awards"
	OpWriteAwards    Operation = "write_awards"
	OpInvokeFunction Operation = "invoke_function"
)

// IsWrite reports whether op mutates the award ledger.
func (o Operation) IsWrite() bool {
	return o == OpWriteAwards
}

// ChannelName names a configured data channel.
type ChannelName string

const (
	// Privileged bypasses row-level policy.
	Privileged ChannelName = "privileged"
	// Restricted is subject to row-level policy.
	Restricted ChannelName = "restricted"
)

// Channel is a named database handle.
type Channel struct {
	Name ChannelName
	DB   bun.IDB
}

// Outcome tags a Resolution.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDenied
	OutcomeUnavailable
	// OutcomeTerminal is a failure another channel cannot fix.
	OutcomeTerminal
	// OutcomeError is any other failure.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDenied:
		return "denied"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "error"
	}
}

// Resolution is the result of resolving or attempting a channel.
type Resolution struct {
	Outcome Outcome
	Channel Channel
	Err     error
}

// OK reports whether the resolution succeeded.
func (r Resolution) OK() bool { return r.Outcome == OutcomeOK }

// Metrics records channel usage. A nil Metrics is allowed.
type Metrics interface {
	RecordChannelAttempt(ctx context.Context, operation, channel, outcome string)
	RecordChannelFallback(ctx context.Context, operation, from, to string)
}

// Selector routes data operations to a channel.
type Selector interface {
	// Resolve returns the first channel op would use.
	Resolve(op Operation) Resolution
	// Do runs fn against the channel chain of op, applying the fallback policy.
	Do(ctx context.Context, op Operation, fn func(ctx context.Context, db bun.IDB) error) error
	// Channels lists the configured channels.
	Channels() []Channel
}

// Config holds the channel handles. Either may be nil.
type Config struct {
	Privileged bun.IDB
	Restricted bun.IDB
	Timeout    time.Duration
}

// ChannelSelector implements Selector.
//
// Writes use the privileged channel when configured, otherwise the restricted
// one, and are never retried elsewhere. Reads try restricted then privileged,
// retrying once on failure.
type ChannelSelector struct {
	privileged *Channel
	restricted *Channel
	timeout    time.Duration
	logger     *slog.Logger
	metrics    Metrics
}

var _ Selector = (*ChannelSelector)(nil)

// NewSelector creates a ChannelSelector.
func NewSelector(cfg Config, logger *slog.Logger, metrics Metrics) *ChannelSelector {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ChannelSelector{
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: metrics,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if cfg.Privileged != nil {
		s.privileged = &Channel{Name: Privileged, DB: cfg.Privileged}
	}
	if cfg.Restricted != nil {
		s.restricted = &Channel{Name: Restricted, DB: cfg.Restricted}
	}
	return s
}

// Channels lists the configured channels, privileged first.
func (s *ChannelSelector) Channels() []Channel {
	var out []Channel
	if s.privileged != nil {
		out = append(out, *s.privileged)
	}
	if s.restricted != nil {
		out = append(out, *s.restricted)
	}
	return out
}

func (s *ChannelSelector) chain(op Operation) []Channel {
	var out []Channel
	if op.IsWrite() {
		if s.privileged != nil {
			return append(out, *s.privileged)
		}
		if s.restricted != nil {
			return append(out, *s.restricted)
		}
		return nil
	}
	if s.restricted != nil {
		out = append(out, *s.restricted)
	}
	if s.privileged != nil {
		out = append(out, *s.privileged)
	}
	return out
}

// Resolve returns the first channel of op's chain.
func (s *ChannelSelector) Resolve(op Operation) Resolution {
	chain := s.chain(op)
	if len(chain) == 0 {
		return Resolution{
			Outcome: OutcomeUnavailable,
			Err:     fmt.Errorf("%s: no channel configured: %w", op, badgedomain.ErrChannelUnavailable),
		}
	}
	return Resolution{Outcome: OutcomeOK, Channel: chain[0]}
}

// Do runs fn against op's channel chain.
func (s *ChannelSelector) Do(ctx context.Context, op Operation, fn func(ctx context.Context, db bun.IDB) error) error {
	chain := s.chain(op)
	if len(chain) == 0 {
		return s.Resolve(op).Err
	}

	var last Resolution
	for i, ch := range chain {
		if i > 0 {
			s.logger.WarnContext(ctx, "Retrying on fallback channel",
				attr.String("operation", string(op)),
				attr.String("from", string(last.Channel.Name)),
				attr.String("to", string(ch.Name)),
				attr.Error(last.Err),
			)
			if s.metrics != nil {
				s.metrics.RecordChannelFallback(ctx, string(op), string(last.Channel.Name), string(ch.Name))
			}
		}

		last = s.attempt(ctx, op, ch, fn)
		switch last.Outcome {
		case OutcomeOK:
			return nil
		case OutcomeTerminal:
			return last.Err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, errors.Join(ctxErr, last.Err))
		}
	}

	if len(chain) > 1 && last.Outcome != OutcomeError {
		return fmt.Errorf("%s: all channels failed: %w: %w", op, badgedomain.ErrChannelUnavailable, last.Err)
	}

	switch last.Outcome {
	case OutcomeDenied:
		return fmt.Errorf("%s via %s: %w: %w", op, last.Channel.Name, badgedomain.ErrAccessDenied, last.Err)
	case OutcomeUnavailable:
		return fmt.Errorf("%s via %s: %w: %w", op, last.Channel.Name, badgedomain.ErrChannelUnavailable, last.Err)
	default:
		return last.Err
	}
}

// attempt runs fn once on ch under the per-call timeout.
func (s *ChannelSelector) attempt(ctx context.Context, op Operation, ch Channel, fn func(ctx context.Context, db bun.IDB) error) Resolution {
	s.logger.DebugContext(ctx, "Data channel selected",
		attr.String("operation", string(op)),
		attr.String("channel", string(ch.Name)),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := Resolution{Channel: ch}
	err := fn(callCtx, ch.DB)
	switch Classify(err) {
	case ClassNone:
		res.Outcome = OutcomeOK
	case ClassDenied:
		res.Outcome, res.Err = OutcomeDenied, err
	case ClassUnavailable:
		res.Outcome, res.Err = OutcomeUnavailable, err
	case ClassNotConfigured:
		res.Outcome = OutcomeTerminal
		res.Err = err
		if !errors.Is(err, badgedomain.ErrNotConfigured) {
			res.Err = fmt.Errorf("%w: %w", badgedomain.ErrNotConfigured, err)
		}
	case ClassDuplicate:
		res.Outcome = OutcomeTerminal
		res.Err = err
		if !errors.Is(err, badgedomain.ErrDuplicateIgnored) {
			res.Err = fmt.Errorf("%w: %w", badgedomain.ErrDuplicateIgnored, err)
		}
	default:
		res.Outcome, res.Err = OutcomeError, err
	}

	if s.metrics != nil {
		s.metrics.RecordChannelAttempt(ctx, string(op), string(ch.Name), res.Outcome.String())
	}
	return res
}
