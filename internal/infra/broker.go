// README: RabbitMQ connection used to forward new orders.
package infra

import (
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
)

type Broker struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// NewBroker dials url and declares a durable topic exchange.
func NewBroker(url, exchange string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, eris.Wrap(err, "amqp dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, eris.Wrap(err, "amqp channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, eris.Wrapf(err, "declare exchange %s", exchange)
	}
	return &Broker{Conn: conn, Channel: ch}, nil
}

func (b *Broker) Close() error {
	if b.Channel != nil && !b.Channel.IsClosed() {
		if err := b.Channel.Close(); err != nil {
			return eris.Wrap(err, "close amqp channel")
		}
	}
	if b.Conn != nil && !b.Conn.IsClosed() {
		if err := b.Conn.Close(); err != nil {
			return eris.Wrap(err, "close amqp connection")
		}
	}
	return nil
}
