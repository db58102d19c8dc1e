package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/self-healing-rag/internal/infrastructure/resilience"
)

const workerQueueGroup = "workers"

// Subjects names the two channels the bus uses: reindex job ids flow from the
// API to workers, index tags flow back to every API replica.
type Subjects struct {
	Reindex      string
	IndexUpdated string
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

type Bus struct {
	conn     *nats.Conn
	subjects Subjects
	executor *resilience.Executor
}

func New(url string, subjects Subjects, options Options) (*Bus, error) {
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
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("self-healing-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:     conn,
		subjects: subjects,
		executor: options.ResilienceExecutor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// DispatchReindex publishes a pending job id for the worker pool.
func (b *Bus) DispatchReindex(ctx context.Context, jobID string) error {
	return b.publish(ctx, "nats_publish_reindex", b.subjects.Reindex, jobID)
}

// IndexUpdated tells API replicas that the live index files changed.
func (b *Bus) IndexUpdated(ctx context.Context, tag string) error {
	return b.publish(ctx, "nats_publish_index_updated", b.subjects.IndexUpdated, tag)
}

// SubscribeReindexRequested delivers each job id to exactly one worker in
// the queue group and blocks until ctx is done.
func (b *Bus) SubscribeReindexRequested(ctx context.Context, handler func(context.Context, string) error) error {
	return b.consume(ctx, b.subjects.Reindex, workerQueueGroup, handler)
}

// SubscribeIndexUpdated delivers every index change to this process and
// blocks until ctx is done.
func (b *Bus) SubscribeIndexUpdated(ctx context.Context, handler func(context.Context, string) error) error {
	return b.consume(ctx, b.subjects.IndexUpdated, "", handler)
}

func (b *Bus) publish(ctx context.Context, operation, subject, payload string) error {
	call := func(_ context.Context) error {
		if err := b.conn.Publish(subject, []byte(payload)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if b.executor != nil {
		err = b.executor.Do(ctx, resilience.Call{
			Operation:  operation,
			Idempotent: true,
			Classify:   classifyNATSError,
		}, call)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

func (b *Bus) consume(ctx context.Context, subject, queue string, handler func(context.Context, string) error) error {
	callback := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			slog.Error("nats_handler_failed", "subject", subject, "payload", string(msg.Data), "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = b.conn.QueueSubscribe(subject, queue, callback)
	} else {
		sub, err = b.conn.Subscribe(subject, callback)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
