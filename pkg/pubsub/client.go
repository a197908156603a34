// Package pubsub wraps the Cloud Pub/Sub v2 client with the topics and
// subscription the floristeria services talk to.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/floristeria-backend/pkg/config"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient dials Pub/Sub for the configured project and fails fast when a
// configured topic or subscription is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	raw, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: raw, projectID: projectID, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "pubsub client initialized")
	}
	return c, nil
}

// Publisher returns a handle for a topic ID or full resource name. The caller
// owns the handle and must Stop it.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	name := c.resourceName(kindTopic, topic)
	if name == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(name)
}

// Subscription accepts a subscription ID or a full resource name.
func (c *Client) Subscription(subscription string) *pubsub.Subscriber {
	name := c.resourceName(kindSubscription, subscription)
	if name == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(name)
}

// NotificationSubscription is what the notification worker receives from.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Ping looks up every configured topic and subscription.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range configured(c.cfg.OrdersTopic, c.cfg.NotificationTopic) {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: c.resourceName(kindTopic, topic),
		})
		if err := lookupError(kindTopic, topic, err); err != nil {
			return err
		}
	}
	for _, sub := range configured(c.cfg.NotificationSubscription) {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: c.resourceName(kindSubscription, sub),
		})
		if err := lookupError(kindSubscription, sub, err); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands an ID to projects/<project>/<kind>/<id>. Names that
// are already fully qualified for kind pass through.
func (c *Client) resourceName(kind resourceKind, id string) string {
	if c == nil || c.projectID == "" {
		return ""
	}
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return ""
	case strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+string(kind)+"/"):
		return id
	default:
		return fmt.Sprintf("projects/%s/%s/%s", c.projectID, kind, id)
	}
}

func configured(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lookupError(kind resourceKind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub %s %q does not exist", strings.TrimSuffix(string(kind), "s"), name)
	default:
		return fmt.Errorf("looking up pubsub %s %q: %w", strings.TrimSuffix(string(kind), "s"), name, err)
	}
}
