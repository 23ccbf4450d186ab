package service

import (
	"context"
	"testing"
	"time"

	"github.com/paylater-gateway/internal/models"
	"github.com/paylater-gateway/internal/platform"
	"github.com/paylater-gateway/internal/queue"
)

type notifyingPlatform struct {
	fakePlatform
	delivered chan string
}

func (p *notifyingPlatform) AttachNote(_ context.Context, _ platform.Credentials, _ string, note string) error {
	p.delivered <- note
	return nil
}

func TestInlineVoidNoteDelivered(t *testing.T) {
	store := newFakeStore()
	store.settings = &models.MerchantSettings{PlatformAppKey: "k", PlatformAppToken: "t"}
	plat := &notifyingPlatform{delivered: make(chan string, 1)}
	publisher := &InlineVoidNotePublisher{Store: store, Platform: plat}

	err := publisher.EnqueueAttachVoidNote(queue.AttachVoidNotePayload{
		TransactionID: "T1",
		Note:          `{"VoidId":"V1"}`,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case note := <-plat.delivered:
		if note != `{"VoidId":"V1"}` {
			t.Fatalf("note: %q", note)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("note was never delivered")
	}
}

func TestInlineVoidNoteSkippedWithoutCredentials(t *testing.T) {
	store := newFakeStore()
	plat := &fakePlatform{}
	publisher := &InlineVoidNotePublisher{Store: store, Platform: plat}

	publisher.deliver(queue.AttachVoidNotePayload{TransactionID: "T1", Note: "n"})
	if len(plat.notes) != 0 {
		t.Fatalf("note delivered without credentials: %+v", plat.notes)
	}
}

func TestInlineVoidNoteSkipsEmptyTransaction(t *testing.T) {
	publisher := &InlineVoidNotePublisher{Store: newFakeStore(), Platform: &fakePlatform{}}
	if err := publisher.EnqueueAttachVoidNote(queue.AttachVoidNotePayload{Note: "n"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := (*InlineVoidNotePublisher)(nil).EnqueueAttachVoidNote(queue.AttachVoidNotePayload{TransactionID: "T1"}); err != nil {
		t.Fatalf("nil publisher: %v", err)
	}
}
