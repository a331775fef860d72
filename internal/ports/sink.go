package ports

import (
	"context"

	"wickrSignals/internal/domain"
)

// SignalSink receives every signal emitted by the live service.
type SignalSink interface {
	PublishSignal(ctx context.Context, sig domain.Signal) error
}

// Broadcaster pushes live events to connected dashboard clients.
type Broadcaster interface {
	BroadcastTick(tick domain.PriceTick)
	BroadcastSignal(label string, sig domain.Signal)
}
