// Package settlement hands closed auctions to the settlement system over
// RabbitMQ. Delivery is best-effort: failures are logged and returned, the
// caller never blocks an auction on them.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"autoliquid/internal/services/auction"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueAuctionClosed receives one message per auction reaching a terminal state.
const QueueAuctionClosed = "auction.closed"

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// dialFunc opens a channel with the queue declared, and a func releasing it.
type dialFunc func() (amqpChannel, func() error, error)

// AMQPNotifier publishes Outcomes as persistent JSON messages to the
// auction.closed durable queue. The connection is opened lazily and
// re-opened after a failed publish.
type AMQPNotifier struct {
	dial  dialFunc
	clock func() time.Time

	mu      sync.Mutex
	ch      amqpChannel
	release func() error
}

var _ auction.SettlementNotifier = (*AMQPNotifier)(nil)

func NewAMQPNotifier(url string) *AMQPNotifier {
	return &AMQPNotifier{dial: dialer(url), clock: time.Now}
}

func dialer(url string) dialFunc {
	return func() (amqpChannel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq channel open: %w", err)
		}
		// Idempotent. Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(
			QueueAuctionClosed, // name
			true,               // durable
			false,              // autoDelete
			false,              // exclusive
			false,              // noWait
			nil,                // args
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq queue declare: %w", err)
		}
		release := func() error {
			_ = ch.Close()
			return conn.Close()
		}
		return ch, release, nil
	}
}

func (n *AMQPNotifier) AuctionClosed(ctx context.Context, o auction.Outcome) error {
	pub, err := newPublishing(o, n.clock())
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil {
		if n.ch, n.release, err = n.dial(); err != nil {
			zap.L().Warn("settlement.connect_failed", zap.Error(err))
			return err
		}
	}
	if err := n.ch.PublishWithContext(ctx,
		"",                 // default exchange
		QueueAuctionClosed, // routing key = queue name
		false,              // mandatory
		false,              // immediate
		pub,
	); err != nil {
		n.resetLocked()
		zap.L().Warn("settlement.publish_failed", zap.String("auction_id", o.AuctionID), zap.Error(err))
		return fmt.Errorf("publish outcome of auction %s: %w", o.AuctionID, err)
	}
	zap.L().Info("settlement.published",
		zap.String("auction_id", o.AuctionID),
		zap.String("status", string(o.Status)),
	)
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resetLocked()
}

func (n *AMQPNotifier) resetLocked() error {
	var err error
	if n.release != nil {
		err = n.release()
	}
	n.ch, n.release = nil, nil
	return err
}

func newPublishing(o auction.Outcome, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(o)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal outcome: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    o.AuctionID,
		Type:         string(o.Status),
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
