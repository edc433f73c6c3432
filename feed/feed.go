// Package feed keeps the message view of a room up to date: it loads the
// history once, then polls the backend for new messages on a fixed interval.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/puyokura/roomchat/model"
)

const (
	DefaultInterval   = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// Source is the part of the backend the feed reads from.
type Source interface {
	Messages(ctx context.Context) ([]model.Message, error)
	NewMessages(ctx context.Context, since string) ([]model.Message, error)
	CurrentUser(ctx context.Context) (model.User, error)
}

// Batch is the outcome of one render cycle.
type Batch struct {
	// Entries were appended to the log in this cycle, in order.
	Entries []Entry
	// Full is set for the initial history load.
	Full bool
	Err  error
}

type Config struct {
	Interval   time.Duration
	MaxBackoff time.Duration
}

// Feed owns the delivered-message log of one room view.
type Feed struct {
	src    Source
	log    *Log
	cfg    Config
	logger zerolog.Logger

	out chan Batch

	mu     sync.Mutex
	paused bool
	wake   chan struct{}
}

func New(src Source, cfg Config, logger zerolog.Logger) *Feed {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = DefaultMaxBackoff
		if cfg.MaxBackoff < cfg.Interval {
			cfg.MaxBackoff = cfg.Interval
		}
	}
	return &Feed{
		src:    src,
		log:    NewLog(),
		cfg:    cfg,
		logger: logger,
		out:    make(chan Batch, 16),
		wake:   make(chan struct{}, 1),
	}
}

// Log is the record of what has been delivered so far.
func (f *Feed) Log() *Log { return f.log }

// Batches delivers the results of Run. It is never closed.
func (f *Feed) Batches() <-chan Batch { return f.out }

// Load fetches and appends the full history of the room.
func (f *Feed) Load(ctx context.Context) (Batch, error) {
	msgs, err := f.src.Messages(ctx)
	if err != nil {
		return Batch{Full: true}, fmt.Errorf("load messages: %w", err)
	}
	b, err := f.render(ctx, msgs)
	b.Full = true
	return b, err
}

// Tick fetches and appends the messages the server has not delivered yet.
func (f *Feed) Tick(ctx context.Context) (Batch, error) {
	msgs, err := f.src.NewMessages(ctx, f.log.Cursor())
	if err != nil {
		return Batch{}, fmt.Errorf("poll new messages: %w", err)
	}
	return f.render(ctx, msgs)
}

// render resolves the viewer afresh and appends msgs. If the viewer cannot be
// resolved the messages are still appended, unmarked, since the server has
// already counted them as delivered.
func (f *Feed) render(ctx context.Context, msgs []model.Message) (Batch, error) {
	if len(msgs) == 0 {
		return Batch{}, nil
	}
	user, err := f.src.CurrentUser(ctx)
	if err != nil {
		err = fmt.Errorf("resolve current user: %w", err)
	}
	return Batch{Entries: f.log.Append(msgs, user.Username)}, err
}

// Pause stops ticking until Resume. A tick already in flight completes.
func (f *Feed) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

// Resume restarts ticking after Pause.
func (f *Feed) Resume() {
	f.mu.Lock()
	was := f.paused
	f.paused = false
	f.mu.Unlock()
	if was {
		select {
		case f.wake <- struct{}{}:
		default:
		}
	}
}

func (f *Feed) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *Feed) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.Interval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = f.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run loads the history, then ticks every interval until ctx is done. Ticks
// never overlap. A failed tick is reported on Batches and delays the next one
// by a jittered, growing backoff; the first success restores the interval.
func (f *Feed) Run(ctx context.Context) error {
	b, err := f.Load(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("history load failed")
		b.Err = err
	}
	if err != nil || len(b.Entries) > 0 {
		if !f.publish(ctx, b) {
			return ctx.Err()
		}
	}

	bo := f.newBackOff()
	timer := time.NewTimer(f.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if f.Paused() {
			f.logger.Debug().Msg("polling suspended")
			for f.Paused() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-f.wake:
				}
			}
			f.logger.Debug().Msg("polling resumed")
		}

		b, err := f.Tick(ctx)
		next := f.cfg.Interval
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			next = bo.NextBackOff()
			f.logger.Warn().Err(err).Dur("retry_in", next).Msg("poll failed")
			b.Err = err
		} else {
			bo.Reset()
		}

		if err != nil || len(b.Entries) > 0 {
			if !f.publish(ctx, b) {
				return ctx.Err()
			}
		}
		timer.Reset(next)
	}
}

func (f *Feed) publish(ctx context.Context, b Batch) bool {
	select {
	case f.out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
