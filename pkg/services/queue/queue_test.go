package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/services/stores"
)

type fakeTransport struct {
	mu       sync.Mutex
	calls    []string // message texts in invocation order
	inFlight int
	maxSeen  int
	delay    time.Duration
	failOn   map[string]bool
	done     chan struct{}
}

func newFakeTransport(delay time.Duration) *fakeTransport {
	return &fakeTransport{delay: delay, failOn: map[string]bool{}, done: make(chan struct{}, 64)}
}

func (f *fakeTransport) Send(ctx context.Context, assistantURL, userID string, msg *chat.Message) (chat.Message, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.calls = append(f.calls, msg.Text)
	fail := f.failOn[msg.Text]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()

	if fail {
		return chat.Message{}, errors.New("boom")
	}
	return chat.Message{
		ID:       "srv-" + strconv.Itoa(len(f.calls)),
		ChatID:   msg.ChatID,
		Sender:   chat.SenderAssistant,
		Text:     "re: " + msg.Text,
		SentDate: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (f *fakeTransport) waitCalls(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for call %d of %d", i+1, n)
		}
	}
}

func newTestQueue(tr Transport) (*Queue, *stores.State) {
	st := stores.NewState()
	q := New(Config{
		ChatID:     "c1",
		WebhookURL: "https://n8n.local/webhook/ava",
		UserID:     "u1",
		State:      st,
		Transport:  tr,
	})
	return q, st
}

func TestSendFIFOAndSingleFlight(t *testing.T) {
	tr := newFakeTransport(20 * time.Millisecond)
	q, _ := newTestQueue(tr)
	defer q.Stop()

	const n = 8
	for i := 0; i < n; i++ {
		q.Send(fmt.Sprintf("msg-%d", i), nil, nil, "")
	}
	tr.waitCalls(t, n)

	require.Len(t, tr.calls, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), tr.calls[i])
	}
	assert.Equal(t, 1, tr.maxSeen, "transport must never be invoked concurrently")
}

func TestSendEmptyIsNoop(t *testing.T) {
	tr := newFakeTransport(0)
	q, st := newTestQueue(tr)
	defer q.Stop()

	q.Send("", nil, nil, "")

	assert.Equal(t, 0, q.Len())
	assert.Empty(t, st.ChatHistory("c1"))
}

func TestSendWithoutWebhookURL(t *testing.T) {
	tr := newFakeTransport(0)
	st := stores.NewState()
	q := New(Config{ChatID: "c1", UserID: "u1", State: st, Transport: tr})
	defer q.Stop()

	q.Send("hello", nil, nil, "")

	assert.Equal(t, 0, q.Len())
	list := st.ChatHistory("c1")
	require.Len(t, list, 1)
	assert.Equal(t, chat.SenderAssistant, list[0].Sender)
	assert.Contains(t, list[0].Text, "No webhook URL")
	assert.Empty(t, tr.calls)
}

func TestStatusTransitions(t *testing.T) {
	tr := newFakeTransport(5 * time.Millisecond)
	tr.failOn["bad"] = true

	st := stores.NewState()
	_, events := st.Subscribe()
	q := New(Config{
		ChatID: "c1", WebhookURL: "https://n8n.local/webhook/ava", UserID: "u1",
		State: st, Transport: tr,
	})
	defer q.Stop()

	q.Send("ok", nil, nil, "")
	q.Send("bad", nil, nil, "")
	q.Send("ok2", nil, nil, "")
	tr.waitCalls(t, 3)

	// collect the per-message status trail from the change feed
	trail := map[string][]chat.MessageStatus{}
	initial := map[string]chat.MessageStatus{}
	deadline := time.After(time.Second)
collect:
	for {
		select {
		case ev := <-events:
			if ev.Message == nil {
				continue
			}
			switch ev.Kind {
			case stores.EvMessageAdded:
				if ev.Message.Sender == chat.SenderUser {
					initial[ev.Message.ID] = ev.Message.Status
				}
			case stores.EvStatusChanged:
				trail[ev.Message.ID] = append(trail[ev.Message.ID], ev.Status)
			}
		case <-deadline:
			break collect
		default:
			if len(trail) == 3 && allSettled(trail) {
				break collect
			}
			time.Sleep(time.Millisecond)
		}
	}

	require.Len(t, trail, 3)
	var failed int
	for id, statuses := range trail {
		require.NotEmpty(t, statuses, "message %s has no transitions", id)
		assert.Equal(t, chat.StatusSending, statuses[0], "sending must never be skipped")
		final := statuses[len(statuses)-1]
		if final == chat.StatusFailed {
			failed++
		} else {
			assert.Equal(t, chat.StatusSent, final)
		}
		for i := 1; i < len(statuses); i++ {
			assert.NotEqual(t, chat.StatusQueued, statuses[i], "status must never revert")
		}
	}
	assert.Equal(t, 1, failed, "exactly the one failing send must end failed")

	// the failure must not have blocked the tail of the queue
	assert.Equal(t, []string{"ok", "bad", "ok2"}, tr.calls)
}

func allSettled(trail map[string][]chat.MessageStatus) bool {
	for _, statuses := range trail {
		if len(statuses) == 0 {
			return false
		}
		last := statuses[len(statuses)-1]
		if last != chat.StatusSent && last != chat.StatusFailed {
			return false
		}
	}
	return true
}

func TestEnqueueWhileProcessingStartsQueued(t *testing.T) {
	tr := newFakeTransport(50 * time.Millisecond)
	q, st := newTestQueue(tr)
	defer q.Stop()

	q.Send("first", nil, nil, "")
	time.Sleep(10 * time.Millisecond) // let the worker pick it up
	q.Send("second", nil, nil, "")

	list := st.ChatHistory("c1")
	require.Len(t, list, 2)
	assert.Equal(t, chat.StatusQueued, list[1].Status,
		"a send while another is in flight must start queued")

	tr.waitCalls(t, 2)
}

func TestResolveWebhookPicksUpLateConfig(t *testing.T) {
	tr := newFakeTransport(0)
	st := stores.NewState()

	var mu sync.Mutex
	var url string
	q := New(Config{
		ChatID: "c1", UserID: "u1", State: st, Transport: tr,
		ResolveWebhook: func() string {
			mu.Lock()
			defer mu.Unlock()
			return url
		},
	})
	defer q.Stop()

	// nothing resolved yet: synthetic error, transport untouched
	q.Send("too early", nil, nil, "")
	list := st.ChatHistory("c1")
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Text, "No webhook URL")
	assert.Empty(t, tr.calls)

	mu.Lock()
	url = "https://n8n.local/webhook/ava"
	mu.Unlock()

	q.Send("on time", nil, nil, "")
	tr.waitCalls(t, 1)
	assert.Equal(t, []string{"on time"}, tr.calls)
}

func TestOverrideChatID(t *testing.T) {
	tr := newFakeTransport(0)
	q, st := newTestQueue(tr)
	defer q.Stop()

	q.Send("hi", nil, nil, "other-chat")
	tr.waitCalls(t, 1)

	assert.Empty(t, st.ChatHistory("c1"))
	list := st.ChatHistory("other-chat")
	require.NotEmpty(t, list)
	assert.Equal(t, "other-chat", list[0].ChatID)
}
