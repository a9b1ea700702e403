package events

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SearchEvent is published after every completed search resolution.
type SearchEvent struct {
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds publisher configuration
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	Enabled    bool
}

// Publisher emits search events to a topic exchange. Publishing is strictly
// best-effort: a broker that is down or was never configured degrades to a
// no-op, it never fails a request.
type Publisher struct {
	config Config
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// NewPublisher connects to the broker when enabled. Connection failure is
// reported but leaves a usable no-op publisher behind.
func NewPublisher(config Config) *Publisher {
	p := &Publisher{config: config}

	if !config.Enabled {
		return p
	}
	if err := p.connect(); err != nil {
		log.Warn("failed to initialize event publisher, continuing without it", "error", err)
	}
	return p
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.config.URL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(
		p.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	log.Info("event publisher initialized", "exchange", p.config.Exchange, "routing_key", p.config.RoutingKey)
	return nil
}

// Publish emits a search event. No-op when disabled or disconnected.
func (p *Publisher) Publish(event SearchEvent) {
	if !p.config.Enabled || p.ch == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("failed to marshal search event", "error", err)
		return
	}

	err = p.ch.Publish(
		p.config.Exchange,
		p.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		log.Warn("failed to publish search event", "error", err)
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
