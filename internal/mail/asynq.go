package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeSend = "mail:send"

// AsynqDispatcher queues messages in redis so they survive restarts and are
// retried on failure
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(opt asynq.RedisConnOpt) *AsynqDispatcher {
	return &AsynqDispatcher{client: asynq.NewClient(opt)}
}

func NewSendTask(m *Message) (*asynq.Task, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mail, %w", err)
	}

	return asynq.NewTask(TypeSend, payload, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

func (a *AsynqDispatcher) Dispatch(ctx context.Context, m *Message) error {
	if m == nil || m.To == "" {
		return ErrNoRecipient
	}

	task, err := NewSendTask(m)
	if err != nil {
		return err
	}

	info, err := a.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail, %w", err)
	}

	zap.L().Debug("Mail enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

func (a *AsynqDispatcher) Close() error {
	return a.client.Close()
}

// HandleSendTask returns the asynq handler that delivers queued mails with s
func HandleSendTask(s Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var m Message
		if err := json.Unmarshal(t.Payload(), &m); err != nil {
			return fmt.Errorf("failed to decode mail, %v, %w", err, asynq.SkipRetry)
		}

		if m.To == "" {
			return fmt.Errorf("%w, %w", ErrNoRecipient, asynq.SkipRetry)
		}

		return s.Send(ctx, &m)
	}
}

// NewWorker builds the asynq server consuming mail tasks. Start it with
// Start and stop it with Shutdown.
func NewWorker(opt asynq.RedisConnOpt, s Sender, concurrency int) (*asynq.Server, *asynq.ServeMux) {
	if concurrency <= 0 {
		concurrency = 1
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Logger:      zap.L().Sugar(),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeSend, HandleSendTask(s))

	return srv, mux
}
