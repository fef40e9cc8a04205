package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/infrastructure/resilience"
)

const (
	queueGroup             = "pipeline-workers"
	defaultProgressSubject = "pipeline.progress"
)

// Queue carries submitted interaction ids from the API to the pipeline
// workers. Payloads are bare interaction ids; workers load the full
// record from the store, so a redelivered message is harmless.
type Queue struct {
	conn            *nats.Conn
	subject         string
	progressSubject string
	exec            *resilience.Executor
	logger          *slog.Logger
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// ProgressSubject carries relayed pipeline progress from workers to
	// API subscribers. Defaults to "pipeline.progress".
	ProgressSubject string
	Executor        *resilience.Executor
	Logger          *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progressSubject := options.ProgressSubject
	if progressSubject == "" {
		progressSubject = defaultProgressSubject
	}

	conn, err := nats.Connect(
		url,
		nats.Name("talent-inbound"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		subject:         subject,
		progressSubject: progressSubject,
		exec:            options.Executor,
		logger:          logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishInteractionSubmitted(ctx context.Context, interactionID string) error {
	call := func(context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(interactionID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.exec != nil {
		err = q.exec.Do(ctx, "nats.publish", classifyNATSError, call)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// PublishProgress relays one pipeline progress entry to API processes.
// Progress is advisory, so publishes go out without the retry executor;
// a lost event only thins the live stream.
func (q *Queue) PublishProgress(_ context.Context, env domain.ProgressEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode progress envelope: %w", err)
	}
	if err := q.conn.Publish(q.progressSubject, payload); err != nil {
		return fmt.Errorf("nats publish progress: %w", err)
	}
	return nil
}

// SubscribeProgress delivers relayed progress envelopes to the handler.
// Every subscriber receives every envelope; there is no queue group,
// each API instance feeds its own hub. The returned function
// unsubscribes.
func (q *Queue) SubscribeProgress(handler func(domain.ProgressEnvelope)) (func(), error) {
	sub, err := q.conn.Subscribe(q.progressSubject, func(msg *nats.Msg) {
		var env domain.ProgressEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			q.logger.Warn("progress_envelope_decode_failed", "error", err)
			return
		}
		handler(env)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe progress: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// SubscribeInteractionSubmitted consumes the subject in the worker
// queue group and blocks until ctx is canceled, then drains.
func (q *Queue) SubscribeInteractionSubmitted(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		id := string(msg.Data)
		if err := handler(handlerCtx, id); err != nil {
			q.logger.Error("interaction_handler_failed", "interaction_id", id, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
