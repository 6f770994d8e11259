package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default queue names. Deployments may override them through configuration.
const (
	QueueParseRequests       = "parse-requests"
	QueueFileParsed          = "file-parsed"
	QueueGenerationRequests  = "generation-requests"
	QueueGenerationCompleted = "generation-completed"
)

// ErrMalformedMessage marks a message body that can never be processed.
// Consumers drop such messages instead of requeueing them.
var ErrMalformedMessage = errors.New("malformed message")

// Message is a single published payload, independent of the broker.
type Message struct {
	// ID is a unique identifier for this message
	ID uuid.UUID `json:"id"`

	// Queue is the destination queue name
	Queue string `json:"queue"`

	// Body contains the payload serialized as JSON
	Body json.RawMessage `json:"body"`

	// PublishedAt is the timestamp when the message was created
	PublishedAt time.Time `json:"published_at"`
}

// NewMessage serializes payload into a message addressed to queue.
func NewMessage(queue string, payload interface{}) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", queue, err)
	}

	return &Message{
		ID:          uuid.New(),
		Queue:       queue,
		Body:        body,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the message body into v. Decoding failures wrap
// ErrMalformedMessage.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, m.Queue, err)
	}
	if validator, ok := v.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, m.Queue, err)
		}
	}
	return nil
}

// Handler processes messages delivered from a queue.
type Handler interface {
	// HandleMessage processes the message within the provided context.
	// Returning an error causes redelivery unless it wraps ErrMalformedMessage.
	HandleMessage(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

// HandleMessage calls f(ctx, msg).
func (f HandlerFunc) HandleMessage(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Publisher sends payloads to named queues.
type Publisher interface {
	// Publish serializes payload as JSON and sends it to queue.
	Publish(ctx context.Context, queue string, payload interface{}) error
}
