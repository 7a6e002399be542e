package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type sliceReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	cancel    context.CancelFunc
	committed []string
	closed    bool
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	r.mu.Unlock()
	return msg, nil
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, kafkax.ExtractEventMeta(m).EventID)
	}
	return nil
}

func (r *sliceReader) Commits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.committed...)
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

type memInbox struct {
	mu         sync.Mutex
	seen       map[string]bool
	failOn     string
	failures   int
	forgetErrs int
}

func (m *memInbox) Record(_ context.Context, id, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.failOn && m.failures > 0 {
		m.failures--
		return false, errors.New("db down")
	}
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memInbox) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forgetErrs > 0 {
		m.forgetErrs--
		return errors.New("db down")
	}
	delete(m.seen, id)
	return nil
}

func message(id string) kafka.Message {
	return kafka.Message{
		Topic: "salon.appointment.created.v1",
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(id)},
		},
	}
}

func newTestConsumer(inbox *memInbox, reader *sliceReader, handler Handler) *Consumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewWithReader(logger, inbox, reader, handler)
	c.retryWait = time.Millisecond
	c.maxWait = 4 * time.Millisecond
	return c
}

func run(t *testing.T, inbox *memInbox, msgs []kafka.Message, handler Handler) *sliceReader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &sliceReader{msgs: msgs, cancel: cancel}
	newTestConsumer(inbox, reader, handler).Run(ctx)
	return reader
}

func TestRunSkipsDuplicates(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	var handled []string
	reader := run(t, inbox, []kafka.Message{message("e1"), message("e1"), message("e2")}, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, kafkax.ExtractEventMeta(msg).EventID)
		return nil
	})
	if len(handled) != 2 || handled[0] != "e1" || handled[1] != "e2" {
		t.Fatalf("unexpected handled events %v", handled)
	}
	// Duplicates are committed so the group moves past them.
	if got := reader.Commits(); len(got) != 3 {
		t.Fatalf("expected 3 commits, got %v", got)
	}
	if !reader.closed {
		t.Fatal("reader not closed on shutdown")
	}
}

func TestRunRetriesFailedEventBeforeCommit(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &sliceReader{msgs: []kafka.Message{message("e1"), message("e2")}, cancel: cancel}
	calls := 0
	newTestConsumer(inbox, reader, func(_ context.Context, msg kafka.Message) error {
		calls++
		if kafkax.ExtractEventMeta(msg).EventID == "e1" && len(reader.Commits()) != 0 {
			t.Errorf("e1 committed before it was handled")
		}
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}).Run(ctx)
	if calls != 3 {
		t.Fatalf("expected e1 twice and e2 once, got %d calls", calls)
	}
	if got := reader.Commits(); len(got) != 2 || got[0] != "e1" || got[1] != "e2" {
		t.Fatalf("unexpected commits %v", got)
	}
	if !inbox.seen["e1"] {
		t.Fatal("successful retry should be recorded")
	}
}

func TestRunDoesNotCommitWhileHandlerFails(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &sliceReader{msgs: []kafka.Message{message("e1"), message("e2")}, cancel: cancel}
	calls := 0
	newTestConsumer(inbox, reader, func(_ context.Context, msg kafka.Message) error {
		calls++
		if id := kafkax.ExtractEventMeta(msg).EventID; id != "e1" {
			t.Errorf("moved past a failing event to %s", id)
		}
		if calls == 5 {
			cancel()
		}
		return errors.New("smtp down")
	}).Run(ctx)

	if got := reader.Commits(); len(got) != 0 {
		t.Fatalf("expected no commits, got %v", got)
	}
	if inbox.seen["e1"] {
		t.Fatal("failed event must not stay in the inbox")
	}
}

func TestRunRetriesInboxFailures(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}, failOn: "bad", failures: 2}
	calls := 0
	reader := run(t, inbox, []kafka.Message{{Topic: "x"}, message("bad")}, func(context.Context, kafka.Message) error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Fatalf("handler should run once after the inbox recovers, got %d calls", calls)
	}
	// The id-less message is dropped and committed.
	if got := reader.Commits(); len(got) != 2 || got[0] != "" || got[1] != "bad" {
		t.Fatalf("unexpected commits %v", got)
	}
}

func TestRunRetriesForgetBeforeRehandling(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}, forgetErrs: 2}
	calls := 0
	reader := run(t, inbox, []kafka.Message{message("e1")}, func(context.Context, kafka.Message) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	})
	if calls != 2 {
		t.Fatalf("expected the event handled again, got %d calls", calls)
	}
	if got := reader.Commits(); len(got) != 1 || got[0] != "e1" {
		t.Fatalf("unexpected commits %v", got)
	}
}
