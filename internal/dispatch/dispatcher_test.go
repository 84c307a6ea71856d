package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/logger"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/subscriber"
	"github.com/FirstyanAgeng/solana-wallet-tracker-bot/internal/telegram"
)

// stubSender records deliveries and fails configured recipients
type stubSender struct {
	mu       sync.Mutex
	sent     map[int64]string
	failWith map[int64]error
}

func newStubSender() *stubSender {
	return &stubSender{
		sent:     make(map[int64]string),
		failWith: make(map[int64]error),
	}
}

func (s *stubSender) SendMarkdown(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failWith[chatID]; ok {
		return err
	}
	s.sent[chatID] = text
	return nil
}

func TestDispatchToAllSubscribers(t *testing.T) {
	sender := newStubSender()
	store := subscriber.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		store.Add(ctx, id)
	}

	d := New(sender, store, logger.NewDefault())
	outcomes := d.Dispatch(ctx, "payload")

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Errorf("subscriber %d failed: %v", o.ChatID, o.Err)
		}
	}
	if len(sender.sent) != 3 {
		t.Errorf("delivered to %d subscribers, want 3", len(sender.sent))
	}
}

func TestForbiddenRetiresSubscriberOthersUnaffected(t *testing.T) {
	sender := newStubSender()
	store := subscriber.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		store.Add(ctx, id)
	}
	sender.failWith[2] = fmt.Errorf("%w: blocked", telegram.ErrRecipientGone)

	d := New(sender, store, logger.NewDefault())
	outcomes := d.Dispatch(ctx, "payload")

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3 settled deliveries", len(outcomes))
	}

	// First and third still received the payload
	if _, ok := sender.sent[1]; !ok {
		t.Error("subscriber 1 did not receive the payload")
	}
	if _, ok := sender.sent[3]; !ok {
		t.Error("subscriber 3 did not receive the payload")
	}

	// Subscriber 2 is retired
	members, _ := store.List(ctx)
	if len(members) != 2 {
		t.Fatalf("subscriber set has %d members, want 2 after retirement", len(members))
	}
	for _, id := range members {
		if id == 2 {
			t.Error("subscriber 2 should have been removed")
		}
	}
}

func TestOtherFailuresAreIsolatedNotRetired(t *testing.T) {
	sender := newStubSender()
	store := subscriber.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		store.Add(ctx, id)
	}
	sender.failWith[1] = errors.New("timeout")

	d := New(sender, store, logger.NewDefault())
	outcomes := d.Dispatch(ctx, "payload")

	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			if o.Retired {
				t.Errorf("subscriber %d retired on a non-forbidden failure", o.ChatID)
			}
		}
	}
	if failed != 1 {
		t.Errorf("got %d failures, want 1", failed)
	}

	count, _ := store.Count(ctx)
	if count != 2 {
		t.Errorf("subscriber set has %d members, want 2 (no retirement)", count)
	}
}

func TestDispatchWithNoSubscribers(t *testing.T) {
	d := New(newStubSender(), subscriber.NewMemoryStore(), logger.NewDefault())
	if outcomes := d.Dispatch(context.Background(), "payload"); outcomes != nil {
		t.Errorf("got %v, want nil for empty subscriber set", outcomes)
	}
}
