package order

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const createdRoutingKey = "order.created"

// Forwarder hands a stored order to the dispatch side.
type Forwarder interface {
	Forward(ctx context.Context, o *Order) error
}

// Publisher is the subset of *amqp.Channel used for forwarding.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder publishes orders as persistent JSON messages to a topic exchange.
type AMQPForwarder struct {
	pub      Publisher
	exchange string
}

func NewAMQPForwarder(pub Publisher, exchange string) *AMQPForwarder {
	return &AMQPForwarder{pub: pub, exchange: exchange}
}

func (f *AMQPForwarder) Forward(ctx context.Context, o *Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "encode order")
	}
	err = f.pub.PublishWithContext(ctx, f.exchange, createdRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(o.ID),
		Timestamp:    o.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return eris.Wrapf(err, "publish order %s", o.ID)
	}
	return nil
}

// LogForwarder only logs; used when no broker is configured.
type LogForwarder struct {
	logger *zap.Logger
}

func NewLogForwarder(logger *zap.Logger) *LogForwarder {
	return &LogForwarder{logger: logger}
}

func (f *LogForwarder) Forward(_ context.Context, o *Order) error {
	f.logger.Info("new order",
		zap.String("order_id", string(o.ID)),
		zap.String("customer", o.CustomerName),
		zap.String("from", o.FromAddress),
		zap.String("to", o.ToAddress),
		zap.Int64("total", o.TotalCost.Amount),
	)
	return nil
}
