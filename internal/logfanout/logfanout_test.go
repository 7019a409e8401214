package logfanout

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

func TestSubscribeReceivesPublishedRecords(t *testing.T) {
	f := New()
	defer f.Shutdown()

	sub := f.Subscribe()
	defer f.Unsubscribe(sub)

	logger := slog.New(f)
	logger.Info("hello")

	select {
	case rec := <-sub.Recv():
		if rec.Message != "hello" {
			t.Fatalf("got message %q, want %q", rec.Message, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the published record")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := New()
	defer f.Shutdown()

	sub := f.Subscribe()
	f.Unsubscribe(sub)

	logger := slog.New(f)
	logger.Info("after unsubscribe")

	select {
	case rec, ok := <-sub.Recv():
		if ok {
			t.Fatalf("expected closed channel after unsubscribe, got record %+v", rec)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected sub.Recv() to observe the mailbox close")
	}
}

func TestOverflowAppendsGapMarker(t *testing.T) {
	f := New()
	defer f.Shutdown()

	sub := f.Subscribe()
	defer f.Unsubscribe(sub)

	// Flood well past the queue depth without draining, so every record
	// after the first queueDepth is a drop.
	for i := 0; i < queueDepth*2; i++ {
		f.publish(&wire.LogRecord{Message: "flood"})
	}

	sawGap := false
	for i := 0; i < queueDepth; i++ {
		select {
		case rec := <-sub.Recv():
			if rec.Gap != nil {
				sawGap = true
				if rec.Gap.Dropped <= 0 {
					t.Fatalf("gap marker reported non-positive dropped count %d", rec.Gap.Dropped)
				}
			}
		case <-time.After(time.Second):
			t.Fatal("expected queued records to be immediately readable")
		}
	}
	if !sawGap {
		t.Fatal("expected at least one gap marker after flooding past queue depth")
	}
}

func TestEnabledAlwaysTrue(t *testing.T) {
	f := New()
	defer f.Shutdown()
	if !f.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected Enabled to accept every level")
	}
}
