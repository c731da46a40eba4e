// Package transport carries commands in and replies/events out over
// Kafka. Commands arrive one at a time on a single topic; replies are
// keyed by the requesting client's ID and book-update events by symbol,
// so per-client and per-symbol ordering is preserved.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/evanreis/predictex/internal/dispatch"
	"github.com/evanreis/predictex/internal/domain"
)

// CommandEnvelope is the wire form of one inbound command. ClientID
// routes the reply back to the requester.
type CommandEnvelope struct {
	ClientID string           `json:"clientId"`
	Message  dispatch.Command `json:"message"`
}

// Reply is the wire form of one outbound response.
type Reply struct {
	Type    string       `json:"type"`
	Payload ReplyPayload `json:"payload"`
}

// ReplyPayload nests the serialized response under "message".
type ReplyPayload struct {
	Message json.RawMessage `json:"message"`
}

// EventEnvelope is the wire form of a per-symbol book update.
type EventEnvelope struct {
	Message json.RawMessage `json:"message"`
}

// ParseCommand decodes an inbound command envelope. An envelope with no
// clientId gets a generated one so the reply still has a routing key.
func ParseCommand(raw []byte) (CommandEnvelope, error) {
	var env CommandEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return CommandEnvelope{}, fmt.Errorf("decode command envelope: %w", err)
	}
	if env.Message.Type == "" {
		return CommandEnvelope{}, fmt.Errorf("decode command envelope: missing message type")
	}
	if env.ClientID == "" {
		env.ClientID = uuid.NewString()
	}
	return env, nil
}

// EncodeReply builds the Kafka key and value for a command response.
func EncodeReply(clientID string, resp dispatch.Response) ([]byte, []byte, error) {
	inner, err := json.Marshal(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("encode response: %w", err)
	}
	value, err := json.Marshal(Reply{
		Type:    string(resp.StatusType),
		Payload: ReplyPayload{Message: inner},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode reply envelope: %w", err)
	}
	return []byte(clientID), value, nil
}

// EncodeEvent builds the Kafka key and value for a book-update event.
func EncodeEvent(symbol string, book domain.BookView) ([]byte, []byte, error) {
	inner, err := json.Marshal(book)
	if err != nil {
		return nil, nil, fmt.Errorf("encode book: %w", err)
	}
	value, err := json.Marshal(EventEnvelope{Message: inner})
	if err != nil {
		return nil, nil, fmt.Errorf("encode event envelope: %w", err)
	}
	return []byte(symbol), value, nil
}

// Consumer reads command envelopes from the commands topic.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a Consumer in the given consumer group.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

// Next blocks until the next command arrives. A malformed envelope is
// returned as an error; the offset is already committed, so the caller
// can log and move on.
func (c *Consumer) Next(ctx context.Context) (CommandEnvelope, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return CommandEnvelope{}, fmt.Errorf("read command: %w", err)
	}
	return ParseCommand(msg.Value)
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Publisher writes keyed messages to a single topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send publishes one keyed message.
func (p *Publisher) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Close flushes and releases the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
