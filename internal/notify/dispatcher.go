package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Sink delivers a message to one channel and returns its delivery id.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) (string, error)
}

// Delivery is the outcome of one sink.
type Delivery struct {
	Sink string
	ID   string
	Err  error
}

// Dispatcher fans a message out to every configured sink.
type Dispatcher struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Sinks returns the number of configured sinks.
func (d *Dispatcher) Sinks() int {
	return len(d.sinks)
}

// Dispatch delivers msg to each sink in order. A failing sink does not
// stop the others; the joined error lists every failure.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) ([]Delivery, error) {
	deliveries := make([]Delivery, 0, len(d.sinks))
	var errs []error
	for _, sink := range d.sinks {
		id, err := sink.Deliver(ctx, msg)
		deliveries = append(deliveries, Delivery{Sink: sink.Name(), ID: id, Err: err})
		if err != nil {
			d.logger.Warn("notification failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		d.logger.Info("notification delivered", zap.String("sink", sink.Name()), zap.String("id", id))
	}
	return deliveries, errors.Join(errs...)
}
