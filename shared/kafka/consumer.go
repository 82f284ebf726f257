// Package kafka consumes render requests from a Kafka topic through a
// consumer group and can publish them for the CLI.
package kafka

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/IBM/sarama"
)

// MessageHandler processes one message value.
// A message is marked consumed only when shouldMark is true; returning
// false leaves it for redelivery.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	// FromOldest replays the topic from the beginning for a new group.
	FromOldest bool
}

// Consumer runs a consumer group over one topic.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	wg      sync.WaitGroup
}

func newSaramaConfig(fromOldest bool) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	if fromOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	cfg.Consumer.Return.Errors = true
	return cfg
}

// NewConsumer connects a consumer group.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if cfg.Handler == nil {
		return nil, errors.New("kafka: consumer needs a handler")
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, newSaramaConfig(cfg.FromOldest))
	if err != nil {
		return nil, err
	}
	return &Consumer{
		group:   group,
		handler: cfg.Handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
	}, nil
}

// Start consumes in the background until ctx is cancelled or Close is
// called. It returns once the first session is set up.
func (c *Consumer) Start(ctx context.Context) error {
	ready := make(chan struct{})
	handler := &groupHandler{handler: c.handler, ready: ready}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		for {
			err := c.group.Consume(ctx, []string{c.topic}, handler)
			switch {
			case errors.Is(err, sarama.ErrClosedConsumerGroup), errors.Is(err, context.Canceled):
				return
			case err != nil:
				log.Printf("❌ Kafka consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			log.Printf("❌ Kafka consumer error: %v", err)
		}
	}()

	select {
	case <-ready:
		log.Printf("✅ Kafka consumer started (group: %s, topic: %s)", c.groupID, c.topic)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the group and waits for the background loops.
func (c *Consumer) Close() error {
	log.Println("Closing Kafka consumer...")
	err := c.group.Close()
	c.wg.Wait()
	return err
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	handler   MessageHandler
	ready     chan struct{}
	readyOnce sync.Once
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.readyOnce.Do(func() { close(h.ready) })
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			log.Printf("📥 Received render request: partition=%d, offset=%d, key=%s",
				msg.Partition, msg.Offset, string(msg.Key))

			shouldMark, err := h.handler.HandleMessage(session.Context(), msg.Value)
			if err != nil {
				log.Printf("❌ Failed to handle message at offset %d: %v", msg.Offset, err)
			}
			if shouldMark {
				session.MarkMessage(msg, "")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}
