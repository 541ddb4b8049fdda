package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/pkg/models"
)

// ErrDeliveryFailed wraps any failure of a notification channel.
var ErrDeliveryFailed = errors.New("alert delivery failed")

// Channel delivers alert payloads to an external notification target.
type Channel interface {
	Send(ctx context.Context, payload models.AlertPayload) error
	Close() error
}

// Dispatcher formats incidents and hands them to a channel.
type Dispatcher struct {
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. Each send is bounded by timeout
// (default 10s).
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{timeout: timeout}
}

// Format renders inc as an alert payload.
func (d *Dispatcher) Format(inc models.Incident) models.AlertPayload {
	return Format(inc)
}

// Dispatch sends payload through ch. A failure is logged, counted and returned
// wrapped in ErrDeliveryFailed; it is never fatal to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.AlertPayload, ch Channel) error {
	if ch == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := send(ctx, ch, payload)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		metrics.Alerts.WithLabelValues("failed").Inc()
		logger.Warnf("Alert for incident %d not delivered: %v", payload.IncidentID, err)
		return fmt.Errorf("%w: incident %d: %v", ErrDeliveryFailed, payload.IncidentID, err)
	}

	metrics.Alerts.WithLabelValues("sent").Inc()
	logger.Infof("Alert sent for incident %d", payload.IncidentID)
	return nil
}

func send(ctx context.Context, ch Channel, payload models.AlertPayload) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("channel panic: %v", p)
		}
	}()
	return ch.Send(ctx, payload)
}
