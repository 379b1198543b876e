package service

import (
	"context"
	"encoding/json"
	"log"

	"agri-assistant-be/internal/dto"
	"agri-assistant-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService records turn analytics from the event bus into the
// isolated pipeline log, off the request path.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	turnLog   logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	turnLog logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		turnLog:   turnLog,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload dto.TurnCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.turnLog.Info("turns", "turn completed", map[string]interface{}{
		"turn_id":     payload.TurnId,
		"session_id":  payload.SessionId,
		"crop":        payload.Crop,
		"region":      payload.Region,
		"simulated":   payload.Simulated,
		"duration_ms": payload.DurationMs,
	})

	msg.Ack()
}
