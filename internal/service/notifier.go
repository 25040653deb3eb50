package service

import (
	"context"

	"github.com/vinieshwan/parking-system/internal/domain"
)

// Notifier fans out park and unpark events. Delivery is best effort;
// implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, event domain.ParkingEvent)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.ParkingEvent) {}

// MultiNotifier delivers an event to each notifier in order. Nil entries are skipped.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event domain.ParkingEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}
