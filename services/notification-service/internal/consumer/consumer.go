package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox is satisfied by *inbox.Repository.
type Inbox interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Reader is satisfied by *kafka.Reader. Offsets are committed explicitly.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader    Reader
	logger    *slog.Logger
	inbox     Inbox
	handler   Handler
	retryWait time.Duration
	maxWait   time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

// New joins the consumer group for every topic in cfg.
func New(logger *slog.Logger, inboxRepo Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return NewWithReader(logger, inboxRepo, reader, handler)
}

func NewWithReader(logger *slog.Logger, inboxRepo Inbox, reader Reader, handler Handler) *Consumer {
	return &Consumer{
		reader:    reader,
		logger:    logger,
		inbox:     inboxRepo,
		handler:   handler,
		retryWait: time.Second,
		maxWait:   30 * time.Second,
	}
}

// Run consumes until ctx is cancelled. A message's offset is committed
// only once it was handled, found in the inbox, or dropped as malformed.
// Failures drop the inbox entry and retry the same message with backoff,
// so nothing behind it is committed either.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !c.sleep(ctx, c.retryWait) {
				return
			}
			continue
		}
		if !c.process(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			// The inbox absorbs the redelivery.
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// process retries msg until it is handled. It returns false when ctx ends
// first.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	wait := c.retryWait
	stale := ""
	for attempt := 1; ; attempt++ {
		var err error
		if stale != "" {
			// The inbox still holds a failed event; handling it now would
			// look like a duplicate.
			if err = c.inbox.Forget(ctx, stale); err == nil {
				stale = ""
			}
		}
		if stale == "" {
			err = c.handle(ctx, msg)
			if err == nil {
				return true
			}
			var se *staleInboxError
			if errors.As(err, &se) {
				stale = se.eventID
			}
		}
		c.logger.Warn("event will be retried", "err", err, "topic", msg.Topic, "offset", msg.Offset, "attempt", attempt, "wait", wait)
		if !c.sleep(ctx, wait) {
			return false
		}
		wait = min(wait*2, c.maxWait)
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	ctxSpan, span := kafkax.StartConsumeSpan(ctx, msg)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID == "" {
		c.logger.Error("event without id dropped", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}

	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inbox")
		return fmt.Errorf("inbox record: %w", err)
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler")
		if ferr := c.inbox.Forget(context.WithoutCancel(ctxSpan), meta.EventID); ferr != nil {
			c.logger.Error("inbox forget failed", "err", ferr, "event_id", meta.EventID)
			return &staleInboxError{eventID: meta.EventID, err: err}
		}
		return fmt.Errorf("handle %s: %w", meta.EventID, err)
	}
	return nil
}

// staleInboxError is a handler failure whose inbox entry could not be
// removed.
type staleInboxError struct {
	eventID string
	err     error
}

func (e *staleInboxError) Error() string {
	return "handle " + e.eventID + " (inbox entry kept): " + e.err.Error()
}

func (e *staleInboxError) Unwrap() error { return e.err }
