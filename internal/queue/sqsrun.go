// Package queue pulls grading requests from an SQS queue and posts results
// to a reply queue. One message is one run; the message is deleted only
// after its result was sent, so a crashed consumer redelivers.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/events"
)

// Runner grades one request; the engine satisfies this.
type Runner interface {
	Run(ctx context.Context, req api.RunRequest) api.RunResult
}

type Consumer struct {
	client   *sqs.Client
	queueURL string
	replyURL string
	runner   Runner
	events   events.Publisher
	logger   *slog.Logger
}

func NewConsumer(client *sqs.Client, queueURL, replyURL string, runner Runner, pub events.Publisher, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.LogPublisher{Logger: logger}
	}
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		replyURL: replyURL,
		runner:   runner,
		events:   pub,
		logger:   logger,
	}
}

type queueMsg struct {
	RunUuid string         `json:"run_uuid"`
	Request api.RunRequest `json:"request"`
	// ReplyQueueURL overrides the configured reply queue for this run.
	ReplyQueueURL string `json:"reply_queue_url,omitempty"`
}

type replyMsg struct {
	RunUuid string        `json:"run_uuid"`
	Result  api.RunResult `json:"result"`
}

// Poll long-polls the queue until ctx is cancelled.
func (c *Consumer) Poll(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     5,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to receive messages", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, message := range out.Messages {
			c.handle(ctx, message.Body, message.ReceiptHandle)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body *string, receipt *string) {
	if body == nil {
		return
	}

	var msg queueMsg
	if err := json.Unmarshal([]byte(*body), &msg); err != nil {
		c.logger.Error("failed to unmarshal queue message", "error", err)
		c.delete(ctx, receipt)
		return
	}
	if msg.RunUuid == "" {
		msg.RunUuid = uuid.New().String()
	}

	c.events.RunReceived(msg.RunUuid, msg.Request.Language)
	res := c.runner.Run(ctx, msg.Request)
	c.events.RunFinished(msg.RunUuid, res)

	replyURL := c.replyURL
	if msg.ReplyQueueURL != "" {
		replyURL = msg.ReplyQueueURL
	}
	if err := c.reply(ctx, replyURL, replyMsg{RunUuid: msg.RunUuid, Result: res}); err != nil {
		c.logger.Error("failed to send result", "error", err, "run_uuid", msg.RunUuid)
		// Leave the message in the queue so the run is retried.
		return
	}
	c.delete(ctx, receipt)
}

func (c *Consumer) reply(ctx context.Context, replyURL string, msg replyMsg) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(replyURL),
		MessageBody: aws.String(string(b)),
	})
	return err
}

func (c *Consumer) delete(ctx context.Context, receipt *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receipt,
	})
	if err != nil {
		c.logger.Error("failed to delete message", "error", err)
	}
}
