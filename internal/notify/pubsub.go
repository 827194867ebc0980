package notify

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/tasktrack/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubPublisher delivers task events over a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	client             *pubsub.Client
	subscriptionSuffix string
}

// NewPubSubPublisher constructs a Pub/Sub publisher from config.
func NewPubSubPublisher(ctx context.Context, cfg config.PubSubConfig) (*PubSubPublisher, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &PubSubPublisher{
		client:             client,
		subscriptionSuffix: suffix,
	}, nil
}

// Publish sends the event to the task-event topic.
func (p *PubSubPublisher) Publish(ctx context.Context, event TaskEvent) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	result := topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": event.Type},
	})
	_, err = result.Get(ctx)
	return err
}

// Listen consumes task events until the context is cancelled.
func (p *PubSubPublisher) Listen(ctx context.Context, fn func(TaskEvent)) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	sub, err := p.ensureSubscription(ctx, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		event, err := decodeEvent(msg.Data)
		if err != nil {
			msg.Nack()
			return
		}
		fn(event)
		msg.Ack()
	})
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubPublisher) Close() error {
	return p.client.Close()
}

func (p *PubSubPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	topic := p.client.Topic(Channel)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, Channel)
	}
	return topic, nil
}

func (p *PubSubPublisher) ensureSubscription(ctx context.Context, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	name := Channel + p.subscriptionSuffix
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
	}
	return sub, nil
}
