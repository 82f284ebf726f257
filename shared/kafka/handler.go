package kafka

import (
	"context"
	"encoding/json"
	"log"
)

// JSONHandler decodes each message into T before processing it.
type JSONHandler[T any] struct {
	// Validate rejects messages that should not be processed.
	Validate func(msg *T) error
	// Process handles a decoded, valid message.
	Process func(ctx context.Context, msg *T) error
	// MarkInvalid marks undecodable or invalid messages so they are not redelivered.
	MarkInvalid bool
}

// HandleMessage implements MessageHandler.
func (h *JSONHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("❌ Failed to unmarshal message: %v", err)
		return h.MarkInvalid, nil
	}

	if h.Validate != nil {
		if err := h.Validate(&msg); err != nil {
			log.Printf("⚠️  Skipping invalid message: %v", err)
			return h.MarkInvalid, nil
		}
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
