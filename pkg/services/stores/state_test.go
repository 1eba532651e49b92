package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
)

func TestAssistantLookup(t *testing.T) {
	st := NewState()
	st.SetAssistants(chat.Assistants{
		{ID: "a-1", Code: "sage", Name: "Sage"},
		{ID: "a-2", Name: "Scout"},
	})

	a, ok := st.Assistant("a-2")
	require.True(t, ok)
	assert.Equal(t, "Scout", a.Name)

	a, ok = st.Assistant("sage")
	require.True(t, ok, "lookup by code")
	assert.Equal(t, "a-1", a.ID)

	_, ok = st.Assistant("nope")
	assert.False(t, ok)
}

func TestChatLifecycle(t *testing.T) {
	st := NewState()
	st.AddChat(chat.Chat{ID: "c-1", AssistantID: "a-1", Title: "First"})
	st.AddChat(chat.Chat{ID: "c-2", AssistantID: "a-1", Title: "Second"})

	require.True(t, st.RenameChat("c-1", "Renamed"))
	c, ok := st.Chat("c-1")
	require.True(t, ok)
	assert.Equal(t, "Renamed", c.Title)

	assert.False(t, st.RenameChat("nope", "x"))

	st.AddMessage(chat.Message{ID: "m-1", ChatID: "c-2", Text: "hi"})
	st.RemoveChat("c-2")
	_, ok = st.Chat("c-2")
	assert.False(t, ok)
	assert.Empty(t, st.ChatHistory("c-2"), "history goes with the chat")
	assert.Len(t, st.Chats(), 1)
}

func TestMessageStatusFlow(t *testing.T) {
	st := NewState()
	st.AddMessage(chat.Message{ID: "m-1", ChatID: "c-1", Text: "hi", Status: chat.StatusQueued})

	require.True(t, st.UpdateMessageStatus("c-1", "m-1", chat.StatusSending))
	require.True(t, st.UpdateMessage("c-1", "m-1", func(m *chat.Message) {
		m.SentDate = "2026-03-01T10:00:00Z"
	}))
	require.True(t, st.UpdateMessageStatus("c-1", "m-1", chat.StatusSent))

	data := st.ChatHistory("c-1")
	require.Len(t, data, 1)
	assert.Equal(t, chat.StatusSent, data[0].Status)
	assert.Equal(t, "2026-03-01T10:00:00Z", data[0].SentDate)

	assert.False(t, st.UpdateMessageStatus("c-1", "ghost", chat.StatusSent))
}

func TestHistoryCopyIsolation(t *testing.T) {
	st := NewState()
	st.AddMessage(chat.Message{ID: "m-1", ChatID: "c-1", Text: "original"})

	data := st.ChatHistory("c-1")
	data[0].Text = "mutated"
	assert.Equal(t, "original", st.ChatHistory("c-1")[0].Text)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	st := NewState()
	id, feed := st.Subscribe()
	defer st.Unsubscribe(id)

	st.AddMessage(chat.Message{ID: "m-1", ChatID: "c-1", Text: "hi"})
	ev := <-feed
	assert.Equal(t, EvMessageAdded, ev.Kind)
	assert.Equal(t, "c-1", ev.ChatID)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "m-1", ev.Message.ID)

	st.UpdateMessageStatus("c-1", "m-1", chat.StatusSending)
	ev = <-feed
	assert.Equal(t, EvStatusChanged, ev.Kind)
	assert.Equal(t, chat.StatusSending, ev.Status)
}

func TestSlowSubscriberNeverBlocks(t *testing.T) {
	st := NewState()
	id, _ := st.Subscribe()
	defer st.Unsubscribe(id)

	// well past the channel buffer; mutations must not stall
	for i := 0; i < 200; i++ {
		st.AddMessage(chat.Message{ID: chat.TempID(), ChatID: "c-1", Text: "x"})
	}
	assert.Len(t, st.ChatHistory("c-1"), 200)
}

func TestSetUnreadSyncsChats(t *testing.T) {
	st := NewState()
	st.SetChats(chat.Chats{{ID: "c-1"}, {ID: "c-2", Unread: 9}})

	st.SetUnread(map[string]int{"c-1": 3})
	assert.Equal(t, map[string]int{"c-1": 3}, st.Unread())

	c, _ := st.Chat("c-1")
	assert.Equal(t, 3, c.Unread)
	c, _ = st.Chat("c-2")
	assert.Equal(t, 0, c.Unread, "missing counters reset to zero")
}
