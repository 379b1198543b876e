package service

import (
	"encoding/json"
	"log"

	"agri-assistant-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	PublishTurnCompleted(payload dto.TurnCompletedMessage)
}

type publisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

// PublishTurnCompleted emits the turn event on the in-process bus.
// Publishing is best-effort; a failure never affects the turn itself.
func (ps *publisherService) PublishTurnCompleted(payload dto.TurnCompletedMessage) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal turn event: %v", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := ps.pubSub.Publish(ps.topicName, msg); err != nil {
		log.Printf("[ERROR] Failed to publish turn event: %v", err)
	}
}
