package messaging

import (
	"context"
	"encoding/json"

	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

type BrokerAdapter struct {
	broker Broker
	logger *logger.Logger
}

func NewBrokerAdapter(broker Broker, log *logger.Logger) MessageBroker {
	if log == nil {
		log = logger.Nop()
	}
	return &BrokerAdapter{broker: broker, logger: log}
}

func (a *BrokerAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	return a.broker.Publish(ctx, topic, json.RawMessage(payload))
}

func (a *BrokerAdapter) Close() error {
	return a.broker.Close()
}

// Subscribe runs handler for each message until ctx is done.
func (a *BrokerAdapter) Subscribe(ctx context.Context, topic string, handler func([]byte) error) error {
	msgChan, err := a.broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgChan {
			if err := handler(msg); err != nil {
				a.logger.Error(err, "Message handler failed", "topic", topic)
			}
		}
	}()

	return nil
}
