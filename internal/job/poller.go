package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Ingester runs one ingestion pass.
type Ingester interface {
	Run(ctx context.Context) error
}

// Poller invokes the ingestion service on a fixed cadence. A failed run is
// logged and dropped; the next tick simply tries again.
type Poller struct {
	tracer   trace.Tracer
	ingester Ingester
	interval time.Duration
}

func NewPoller(tracer trace.Tracer, ingester Ingester, interval time.Duration) *Poller {
	return &Poller{
		tracer:   tracer,
		ingester: ingester,
		interval: interval,
	}
}

// Start runs an immediate ingestion pass and then ticks until ctx is
// cancelled. Blocks; callers run it in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	log.Printf("ingestion poller starting (every %v)", p.interval)

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("ingestion poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "poller.run-once")
	defer span.End()

	if err := p.ingester.Run(ctx); err != nil {
		log.Printf("scheduled ingestion failed: %v", err)
	}
}
