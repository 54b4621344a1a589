// pool.go - Bounded dispatch for proving work.
//
// Proving is the one long-running, resource-heavy operation in the system,
// so it runs through a fixed-size worker pool with caller-supplied timeouts.
// The backend exposes no native cancellation: on timeout the in-flight run
// is abandoned and its eventual result discarded.

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPoolClosed reports a prove submitted after Close.
var ErrPoolClosed = errors.New("engine: pool closed")

// Pool bounds the number of concurrent proving runs against an Engine.
type Pool struct {
	eng   Engine
	slots chan struct{}
	done  chan struct{}
	log   zerolog.Logger
}

// NewPool wraps eng with a pool of size concurrent proving slots.
func NewPool(eng Engine, size int, log zerolog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		eng:   eng,
		slots: make(chan struct{}, size),
		done:  make(chan struct{}),
		log:   log.With().Str("component", "prover-pool").Logger(),
	}
}

type proveResult struct {
	receipt Receipt
	err     error
}

// Prove acquires a slot and runs the engine's prover. If ctx expires while
// queued or mid-proof the call returns the context error and the run, if
// started, is abandoned; partial work is dropped.
func (p *Pool) Prove(ctx context.Context, witness []byte) (Receipt, error) {
	job := uuid.NewString()

	select {
	case <-p.done:
		return Receipt{}, ErrPoolClosed
	default:
	}

	select {
	case p.slots <- struct{}{}:
	case <-p.done:
		return Receipt{}, ErrPoolClosed
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}

	start := time.Now()
	out := make(chan proveResult, 1)
	go func() {
		defer func() { <-p.slots }()
		receipt, err := p.eng.Prove(ctx, witness)
		out <- proveResult{receipt: receipt, err: err}
	}()

	select {
	case res := <-out:
		if res.err != nil {
			p.log.Debug().Str("job", job).Err(res.err).Msg("prove failed")
			return Receipt{}, res.err
		}
		p.log.Debug().Str("job", job).Dur("took", time.Since(start)).Msg("prove finished")
		return res.receipt, nil
	case <-ctx.Done():
		p.log.Warn().Str("job", job).Dur("after", time.Since(start)).Msg("prove abandoned")
		return Receipt{}, ctx.Err()
	}
}

// Verify runs inline; verification is cheap.
func (p *Pool) Verify(r Receipt, image ImageID) (bool, error) {
	return p.eng.Verify(r, image)
}

// Close rejects new work. In-flight runs finish in the background.
func (p *Pool) Close() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}
