package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

var _ driven.ModelValidator = (*Pinger)(nil)

// DefaultPingTimeout bounds a single validation call.
const DefaultPingTimeout = 30 * time.Second

// Pinger validates a backend by building a gateway from the settings and
// asking for a one-token reply.
type Pinger struct {
	timeout time.Duration
	build   func(domain.ModelSettings) (driven.ModelGateway, error)
}

// NewPinger returns a Pinger. A non-positive timeout uses DefaultPingTimeout.
func NewPinger(timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &Pinger{timeout: timeout, build: CreateModelGateway}
}

// Validate returns nil when the backend answers within the timeout.
func (p *Pinger) Validate(ctx context.Context, settings domain.ModelSettings) error {
	gw, err := p.build(settings)
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := gw.Generate(ctx, "", "Reply with OK.", 1); err != nil {
		return fmt.Errorf("%s backend unreachable: %w", settings.Backend, err)
	}
	return nil
}
