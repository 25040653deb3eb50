// Package iot connects the parking flows to the gate kiosks and slot
// indicators through AWS SQS and AWS IoT.
package iot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/metrics"
)

const (
	maxMessages       = 10
	waitTimeSeconds   = 20
	visibilityTimeout = 60
	receiveRetryDelay = 5 * time.Second
)

// SQSAPI is the part of the SQS client used by the consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer long-polls the gate queue. A message is deleted once handled or
// when it can never succeed; other failures reappear after the visibility timeout.
type SQSConsumer struct {
	client   SQSAPI
	queueURL string
	flows    ParkingFlows
	metrics  *metrics.ParkingMetrics
	log      logger.Logger
}

func NewSQSConsumer(client SQSAPI, queueURL string, flows ParkingFlows, m *metrics.ParkingMetrics, log logger.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:   client,
		queueURL: queueURL,
		flows:    flows,
		metrics:  m,
		log:      log.Named("sqs"),
	}
}

// Start blocks until ctx is cancelled.
func (c *SQSConsumer) Start(ctx context.Context) error {
	c.log.Info("listening for gate commands", "queueUrl", c.queueURL)
	for {
		if ctx.Err() != nil {
			c.log.Info("gate command consumer stopped")
			return nil
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: maxMessages,
			WaitTimeSeconds:     waitTimeSeconds,
			VisibilityTimeout:   visibilityTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.Error("receive gate commands failed", "error", err)
			select {
			case <-time.After(receiveRetryDelay):
			case <-ctx.Done():
			}
			continue
		}

		for _, msg := range out.Messages {
			c.handle(ctx, msg)
		}
	}
}

func (c *SQSConsumer) handle(ctx context.Context, msg types.Message) {
	messageID := aws.ToString(msg.MessageId)
	if msg.Body == nil {
		c.log.Warn("dropping gate command without body", "messageId", messageID)
		c.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}

	cmd, err := ParseGateCommand(*msg.Body)
	if err != nil {
		c.log.Warn("dropping malformed gate command", "messageId", messageID, "error", err)
		c.metrics.RecordGateCommand("invalid", false)
		c.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}

	err = Dispatch(ctx, c.flows, cmd)
	c.metrics.RecordGateCommand(string(cmd.Action), err == nil)
	switch {
	case err == nil:
		c.deleteMessage(ctx, msg.ReceiptHandle)
	case isTerminal(err):
		c.log.Warn("gate command rejected",
			"messageId", messageID, "action", cmd.Action, "plateNumber", cmd.PlateNumber, "error", err)
		c.deleteMessage(ctx, msg.ReceiptHandle)
	default:
		c.log.Error("gate command failed, will be retried",
			"messageId", messageID, "action", cmd.Action, "plateNumber", cmd.PlateNumber, "error", err)
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		c.log.Warn("cannot delete message without receipt handle")
		return
	}
	_, err := c.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.log.Error("delete gate command failed", "error", err)
	}
}
