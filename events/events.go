// Package events publishes tool lifecycle transitions to a broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Type string

const (
	RequestCreated  Type = "request.created"
	RequestApproved Type = "request.approved"
	RequestRejected Type = "request.rejected"
	ToolIssued      Type = "tool.issued"
	ToolReturned    Type = "tool.returned"
	ReturnRejected  Type = "return.rejected"
)

const Exchange = "tools"

type ToolEvent struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ToolID    uint      `json:"toolId"`
	ToolName  string    `json:"toolName,omitempty"`
	IssueID   uint      `json:"issueId,omitempty"`
	RequestID uint      `json:"requestId,omitempty"`
	Employee  string    `json:"employee,omitempty"`
	ChatID    int64     `json:"chatId,omitempty"`
	At        time.Time `json:"at"`
}

// New stamps an event with a fresh id and the given time.
func New(t Type, toolID uint, at time.Time) ToolEvent {
	return ToolEvent{ID: uuid.NewString(), Type: t, ToolID: toolID, At: at.UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, ev ToolEvent) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ToolEvent) error { return nil }
func (NopPublisher) Close() error                             { return nil }

// AMQPPublisher writes persistent JSON messages to a durable topic exchange,
// routed by event type.
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev ToolEvent) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, Exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.At,
		Type:         string(ev.Type),
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

func Encode(ev ToolEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", ev.Type, err)
	}
	return b, nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []ToolEvent
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev ToolEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Type)
	}
	return out
}
