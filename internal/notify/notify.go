// Package notify publishes task lifecycle events to a message broker so
// out-of-band consumers (admin notification, audit tooling) can follow
// task activity without polling the store.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasktrack/apiserver/config"
)

// Channel is the broker channel all task events flow through.
const Channel = "task-events"

// Event types.
const (
	EventTaskCreated   = "task.created"
	EventTaskCompleted = "task.completed"
)

// TaskEvent is the JSON payload published for a task lifecycle change.
type TaskEvent struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	// TaskID identifies the task the event is about.
	TaskID int `json:"task_id"`

	// Title is the task title at the time of the event.
	Title string `json:"title"`

	// AssigneeID is the user the task is assigned to.
	AssigneeID int `json:"assignee_id"`

	// SupervisorID is the assignee's supervising admin, zero if none.
	SupervisorID int `json:"supervisor_id,omitempty"`

	// At is when the event occurred.
	At time.Time `json:"at"`
}

// Publisher delivers task events to a broker and lets consumers tail
// them. Implementations are safe to share across requests.
type Publisher interface {
	// Publish sends the event. It must not block longer than the context
	// allows.
	Publish(ctx context.Context, event TaskEvent) error

	// Listen consumes events and invokes fn for each one until the
	// context is cancelled or the broker connection fails.
	Listen(ctx context.Context, fn func(TaskEvent)) error

	// Close releases the broker connection.
	Close() error
}

// FromConfig constructs the configured Publisher. It returns (nil, nil)
// when no backend is configured; event publishing is then disabled.
func FromConfig(ctx context.Context, cfg config.Config) (Publisher, error) {
	switch cfg.NotifyBackend {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubPublisher(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.NotifyBackend)
	}
}

func encodeEvent(event TaskEvent) ([]byte, error) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	return json.Marshal(event)
}

func decodeEvent(data []byte) (TaskEvent, error) {
	var event TaskEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return TaskEvent{}, err
	}
	return event, nil
}
