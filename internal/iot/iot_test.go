package iot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
)

type fakeFlows struct {
	mu        sync.Mutex
	parked    []domain.VehicleDetails
	unparked  []domain.UnparkDetails
	parkErr   error
	unparkErr error
}

func (f *fakeFlows) Park(_ context.Context, _, _ string, v domain.VehicleDetails) (*domain.ParkingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parked = append(f.parked, v)
	return &domain.ParkingSession{}, f.parkErr
}

func (f *fakeFlows) Unpark(_ context.Context, d domain.UnparkDetails) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unparked = append(f.unparked, d)
	return 40, f.unparkErr
}

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]types.Message
	deleted  []string
	received int
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if f.received < len(f.batches) {
		batch := f.batches[f.received]
		f.received++
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func message(handle, body string) types.Message {
	return types.Message{MessageId: aws.String(handle), ReceiptHandle: aws.String(handle), Body: aws.String(body)}
}

func TestParseGateCommand(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "park", body: `{"action":"park","plateNumber":"abc1234","parkingSlotId":"s1","entryPointId":"e1","type":"small"}`},
		{name: "unpark", body: `{"action":"unpark","plateNumber":"abc1234"}`},
		{name: "not json", body: `{`, wantErr: true},
		{name: "short plate", body: `{"action":"unpark","plateNumber":"ab"}`, wantErr: true},
		{name: "park without slot", body: `{"action":"park","plateNumber":"abc1234","type":"small"}`, wantErr: true},
		{name: "bad type", body: `{"action":"park","plateNumber":"abc1234","parkingSlotId":"s1","entryPointId":"e1","type":"huge"}`, wantErr: true},
		{name: "unknown action", body: `{"action":"tow","plateNumber":"abc1234"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseGateCommand(tt.body)
			if tt.wantErr {
				assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "abc1234", cmd.PlateNumber)
		})
	}
}

func TestConsumerDeletesHandledAndTerminalMessages(t *testing.T) {
	parkTime := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	park, _ := json.Marshal(domain.GateCommand{
		Action: domain.GateActionPark, PlateNumber: "abc1234", ParkingSlotID: "s1",
		EntryPointID: "e1", Type: "medium", ParkTime: &parkTime,
	})

	client := &fakeSQS{batches: [][]types.Message{{
		message("ok", string(park)),
		message("bad", `not json`),
		message("gone", `{"action":"unpark","plateNumber":"zzz9999"}`),
	}}}
	flows := &fakeFlows{unparkErr: apperr.NotFound("no parking history for plate number")}
	consumer := NewSQSConsumer(client, "queue", flows, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.deleted) == 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []string{"ok", "bad", "gone"}, client.deleted)
	require.Len(t, flows.parked, 1)
	assert.Equal(t, domain.SizeMedium, flows.parked[0].Type)
	assert.Equal(t, parkTime, flows.parked[0].ParkTime.Time)
}

func TestConsumerKeepsRetryableMessages(t *testing.T) {
	client := &fakeSQS{}
	flows := &fakeFlows{unparkErr: apperr.Internal(errors.New("db down"))}
	consumer := NewSQSConsumer(client, "queue", flows, nil, logger.NewNop())

	consumer.handle(context.Background(), message("retry", `{"action":"unpark","plateNumber":"abc1234"}`))

	assert.Empty(t, client.deleted)
	assert.Len(t, flows.unparked, 1)
}

type fakeIoT struct {
	inputs []*iotdataplane.PublishInput
	err    error
}

func (f *fakeIoT) Publish(_ context.Context, in *iotdataplane.PublishInput, _ ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &iotdataplane.PublishOutput{}, f.err
}

func TestSlotStatePublisher(t *testing.T) {
	client := &fakeIoT{}
	p := NewSlotStatePublisher(client, logger.NewNop())

	p.Notify(context.Background(), domain.ParkingEvent{
		Type: domain.EventParked, PlateNumber: "abc1234", ParkingSlotID: "s1", ParkingComplexID: "c1",
	})
	p.Notify(context.Background(), domain.ParkingEvent{
		Type: domain.EventUnparked, PlateNumber: "abc1234", ParkingSlotID: "s1", ParkingComplexID: "c1",
	})

	require.Len(t, client.inputs, 2)
	assert.Equal(t, "parking/slots/s1/state", aws.ToString(client.inputs[0].Topic))
	assert.Equal(t, int32(1), client.inputs[0].Qos)

	var first, second domain.SlotStateMessage
	require.NoError(t, json.Unmarshal(client.inputs[0].Payload, &first))
	require.NoError(t, json.Unmarshal(client.inputs[1].Payload, &second))
	assert.True(t, first.IsOccupied)
	assert.Equal(t, "abc1234", first.PlateNumber)
	assert.False(t, second.IsOccupied)
	assert.Empty(t, second.PlateNumber)
}

func TestSlotStatePublisherSwallowsErrors(t *testing.T) {
	client := &fakeIoT{err: errors.New("throttled")}
	p := NewSlotStatePublisher(client, logger.NewNop())
	assert.NotPanics(t, func() {
		p.Notify(context.Background(), domain.ParkingEvent{Type: domain.EventParked, ParkingSlotID: "s1"})
	})
	assert.Error(t, p.Publish(context.Background(), domain.SlotStateMessage{ParkingSlotID: "s1"}))
}
