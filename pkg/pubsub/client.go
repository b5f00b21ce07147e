// Package pubsub wraps the Pub/Sub v2 client used by the outbox publisher.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/retailops-backend/pkg/config"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

var errNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	ps        *pubsub.Client
	projectID string
	topics    []string
	// lookup fetches topic metadata; swapped out in tests.
	lookup func(ctx context.Context, fullName string) error
}

// NewClient connects to projectID and verifies that the order and payment
// topics exist before returning.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("pubsub: gcp project id is required")
	}
	topics := compact(cfg.OrdersTopic, cfg.PaymentsTopic)
	if len(topics) == 0 {
		return nil, errors.New("pubsub: no topics configured")
	}

	ps, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub: new client: %w", err)
	}
	c := &Client{ps: ps, projectID: projectID, topics: topics}
	c.lookup = func(ctx context.Context, fullName string) error {
		_, err := ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
		return err
	}

	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"project_id": projectID, "topics": topics}), "pubsub ready")
	}
	return c, nil
}

// Publisher returns a handle for topic with per-key message ordering on.
// Callers own the handle and must Stop it.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	name := c.topicName(topic)
	if name == "" {
		return nil
	}
	p := c.ps.Publisher(name)
	p.EnableMessageOrdering = true
	return p
}

// Ping checks every configured topic and reports all that are missing or
// unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.lookup == nil {
		return errNotInitialized
	}
	var errs error
	for _, topic := range c.topics {
		err := c.lookup(ctx, c.topicName(topic))
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound:
			errs = multierr.Append(errs, fmt.Errorf("pubsub: topic %q does not exist", topic))
		default:
			errs = multierr.Append(errs, fmt.Errorf("pubsub: topic %q: %w", topic, err))
		}
	}
	return errs
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// topicName expands a bare topic id to projects/<project>/topics/<id>. Full
// resource names pass through unchanged.
func (c *Client) topicName(topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case c == nil || topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/"):
		return topic
	case c.projectID == "":
		return ""
	}
	return "projects/" + c.projectID + "/topics/" + topic
}

func compact(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
