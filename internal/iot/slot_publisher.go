package iot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
)

// IoTDataAPI is the part of the IoT data plane client used for publishing.
type IoTDataAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// SlotTopic is the MQTT topic a slot indicator subscribes to.
func SlotTopic(slotID string) string {
	return fmt.Sprintf("parking/slots/%s/state", slotID)
}

// SlotStatePublisher turns park and unpark events into slot state messages.
type SlotStatePublisher struct {
	client IoTDataAPI
	log    logger.Logger
}

func NewSlotStatePublisher(client IoTDataAPI, log logger.Logger) *SlotStatePublisher {
	return &SlotStatePublisher{client: client, log: log.Named("iot")}
}

func (p *SlotStatePublisher) Notify(ctx context.Context, event domain.ParkingEvent) {
	msg := domain.SlotStateMessage{
		ParkingSlotID:    event.ParkingSlotID,
		ParkingComplexID: event.ParkingComplexID,
		IsOccupied:       event.Type == domain.EventParked,
		At:               event.At,
	}
	if msg.IsOccupied {
		msg.PlateNumber = event.PlateNumber
	}
	if err := p.Publish(ctx, msg); err != nil {
		p.log.Error("publish slot state failed", "slotId", msg.ParkingSlotID, "error", err)
	}
}

func (p *SlotStatePublisher) Publish(ctx context.Context, msg domain.SlotStateMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slot state: %w", err)
	}
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(SlotTopic(msg.ParkingSlotID)),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", SlotTopic(msg.ParkingSlotID), err)
	}
	p.log.Debug("slot state published", "slotId", msg.ParkingSlotID, "isOccupied", msg.IsOccupied)
	return nil
}
