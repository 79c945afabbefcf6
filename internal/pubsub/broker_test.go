package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe("weekly-1")
	defer unsubscribe()

	b.Publish("weekly-1", FormatEvent("previous", "succeeded"))
	require.JSONEq(t, `{"stream":"previous","data":"succeeded"}`, string(recv(t, ch)))
}

func TestSubscribeReplaysCache(t *testing.T) {
	b := NewBroker()
	b.Publish("weekly-1", []byte(`first`))
	b.Publish("weekly-1", []byte(`second`))

	ch, unsubscribe := b.Subscribe("weekly-1")
	defer unsubscribe()

	require.Equal(t, "first", string(recv(t, ch)))
	require.Equal(t, "second", string(recv(t, ch)))
}

func TestTopicsAreIsolated(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe("weekly-1")
	defer unsubscribe()

	b.Publish("weekly-2", []byte(`other`))
	select {
	case msg := <-ch:
		t.Fatalf("unexpected event %q on weekly-1", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe("weekly-1")
	unsubscribe()

	_, open := <-ch
	require.False(t, open)
}

func TestCloseTopic(t *testing.T) {
	b := NewBroker()
	ch, _ := b.Subscribe("weekly-1")
	b.Publish("weekly-1", []byte(`cached`))

	// Drain the live copy, then close the topic.
	recv(t, ch)
	b.CloseTopic("weekly-1")
	_, open := <-ch
	require.False(t, open)

	// Cache is gone: a new subscriber sees no replay.
	ch2, unsubscribe := b.Subscribe("weekly-1")
	defer unsubscribe()
	select {
	case msg := <-ch2:
		t.Fatalf("unexpected replayed event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeDuringReplay(t *testing.T) {
	b := NewBroker()
	// More cached events than the 128-slot delivery buffer, so the replay is
	// still blocked on a full channel when the subscriber leaves.
	for i := 0; i < 200; i++ {
		b.Publish("weekly-1", []byte("event"))
	}

	ch, unsubscribe := b.Subscribe("weekly-1")
	time.Sleep(50 * time.Millisecond)
	unsubscribe()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed after unsubscribe")
		}
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	b := NewBroker()
	_, unsubscribe := b.Subscribe("weekly-1")
	unsubscribe()
	require.NotPanics(t, unsubscribe)
}

func TestCloseTopicDuringReplay(t *testing.T) {
	b := NewBroker()
	for i := 0; i < 200; i++ {
		b.Publish("weekly-1", []byte("event"))
	}

	ch, unsubscribe := b.Subscribe("weekly-1")
	time.Sleep(50 * time.Millisecond)
	b.CloseTopic("weekly-1")

	// Unsubscribing after the topic closed is a no-op.
	require.NotPanics(t, unsubscribe)

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed after topic close")
		}
	}
}

func TestCacheBounded(t *testing.T) {
	b := NewBroker()
	for i := 0; i < maxCached+10; i++ {
		b.Publish("weekly-1", []byte{byte(i)})
	}
	require.Len(t, b.cache["weekly-1"], maxCached)
}
