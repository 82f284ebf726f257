package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"slidestudio/shared/kafka"
	"slidestudio/types"
)

// KafkaHandler renders each RenderRequest message synchronously.
// Undecodable or invalid messages are marked and skipped. A render that
// fails is recorded on the run and the message is marked; only a request
// for a run that is still active is left for redelivery.
func (r *Runner) KafkaHandler() *kafka.JSONHandler[types.RenderRequest] {
	return &kafka.JSONHandler[types.RenderRequest]{
		MarkInvalid: true,
		Validate: func(req *types.RenderRequest) error {
			if strings.TrimSpace(req.RunID) != "" {
				if err := ValidateRunID(req.RunID); err != nil {
					return err
				}
			}
			return req.Plan.Validate()
		},
		Process: func(ctx context.Context, req *types.RenderRequest) error {
			status, err := r.Execute(ctx, *req)
			switch {
			case errors.Is(err, ErrRunActive):
				return err
			case err != nil:
				log.Printf("⚠️  [jobs] kafka run %s finished with error: %v", status.RunID, err)
			}
			return nil
		},
	}
}

// StartKafkaConsumer consumes render requests until ctx is cancelled.
func (r *Runner) StartKafkaConsumer(ctx context.Context, brokers []string, topic, groupID string) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Handler: r.KafkaHandler(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("failed to start kafka consumer: %w", err)
	}
	return consumer, nil
}
