package main

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

// publisherCache keeps one publisher per topic. GCP publishers batch in the
// background and only flush on Stop.
type publisherCache struct {
	newPublisher publisherFactory
	mu           sync.Mutex
	publishers   map[string]publisher
}

func (c *publisherCache) publisherFor(topic string) publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[topic]; ok {
		return pub
	}
	pub := c.newPublisher(topic)
	if pub != nil {
		c.publishers[topic] = pub
	}
	return pub
}

func (c *publisherCache) stopPublishers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, topic)
	}
}

func gcpPublisherFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		raw := client.Publisher(topic)
		if raw == nil {
			return nil
		}
		return gcpPublisher{raw}
	}
}

// gcpPublisher narrows *PublishResult to the publishResult interface.
type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
