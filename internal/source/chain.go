package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// Chain tries a list of providers for one source in order. A provider that
// is unavailable, or fails before emitting anything, hands over to the next.
// Once a provider has emitted observations the chain stops there.
type Chain struct {
	name      string
	providers []Adapter
	log       *zap.Logger

	mu     sync.Mutex
	winner string
}

// NewChain returns a chain named after the source it fills.
func NewChain(name string, log *zap.Logger, providers ...Adapter) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{name: name, providers: providers, log: log}
}

func (c *Chain) Name() string { return c.name }

// Provider returns the name of the provider that produced the last
// collection, or "" when none did.
func (c *Chain) Provider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner
}

func (c *Chain) setWinner(name string) {
	c.mu.Lock()
	c.winner = name
	c.mu.Unlock()
}

func (c *Chain) Collect(ctx context.Context, emit func(health.Observation)) error {
	c.setWinner("")

	var unavailable, failed []error
	for _, p := range c.providers {
		emitted := 0
		err := p.Collect(ctx, func(o health.Observation) {
			emitted++
			emit(o)
		})
		if err == nil || emitted > 0 {
			c.setWinner(p.Name())
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if errors.Is(err, ErrUnavailable) {
			c.log.Debug("Provider unavailable, trying next",
				zap.String("source", c.name), zap.String("provider", p.Name()), zap.Error(err))
			unavailable = append(unavailable, err)
			continue
		}
		c.log.Warn("Provider failed, trying next",
			zap.String("source", c.name), zap.String("provider", p.Name()), zap.Error(err))
		failed = append(failed, fmt.Errorf("%s: %w", p.Name(), err))
	}

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	if len(unavailable) > 0 {
		return errors.Join(unavailable...)
	}
	return fmt.Errorf("%w: no providers for %s", ErrUnavailable, c.name)
}
