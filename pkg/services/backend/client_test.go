package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAssistantsWithChats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assistants-with-chats/u-1", r.URL.Path)
		io.WriteString(w, `[
			{"id":"a-1","name":"Sage","webhook":"https://flows.local/sage",
			 "chats":[{"id":"c-1","chatName":"First chat","unread":2}]},
			{"id":"a-2","name":"Scout","webhookUrl":"https://flows.local/scout","chats":[]}
		]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assistants, chats, err := c.FetchAssistantsWithChats(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, assistants, 2)
	assert.Equal(t, "https://flows.local/sage", assistants[0].WebhookURL)
	assert.Equal(t, "https://flows.local/scout", assistants[1].WebhookURL)
	require.Len(t, chats, 1)
	assert.Equal(t, "c-1", chats[0].ID)
	assert.Equal(t, "First chat", chats[0].Title)
	assert.Equal(t, "a-1", chats[0].AssistantID, "nested chats inherit the assistant id")
	assert.Equal(t, 2, chats[0].Unread)
}

func TestFetchChatHistoryMixedKeyForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat-history/u-1/c-1", r.URL.Path)
		io.WriteString(w, `[
			{"id":"m-1","chat_id":"c-1","sender":"user","text":"hi","sent_date":"2026-02-01T10:00:00Z"},
			{"id":"m-2","chatId":"c-1","sender":"assistant","text":"hello","isAudio":true,"duration":2.5}
		]`)
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL).FetchChatHistory(context.Background(), "u-1", "c-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c-1", msgs[0].ChatID)
	assert.Equal(t, "c-1", msgs[1].ChatID)
	assert.True(t, msgs[1].IsAudio)
	assert.Equal(t, 2.5, msgs[1].Duration)
}

func TestAddChatArrayWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/u-1/chats", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "plan my week", body["chatFirstMessage"])
		assert.Equal(t, "a-1", body["assistantId"])
		// n8n flows often wrap the created record in an array
		io.WriteString(w, `[{"id":"c-9","chatName":"Weekly planning"}]`)
	}))
	defer srv.Close()

	cc, err := NewClient(srv.URL).AddChat(context.Background(), "u-1", "a-1", "plan my week")
	require.NoError(t, err)
	assert.Equal(t, "c-9", cc.ID)
	assert.Equal(t, "Weekly planning", cc.Title)
	assert.Equal(t, "a-1", cc.AssistantID)
}

func TestRenameAndDeleteChat(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.RenameChat(context.Background(), "u-1", "c-1", "Renamed"))
	assert.Equal(t, "PATCH", gotMethod)
	assert.Equal(t, "/chats/u-1/c-1", gotPath)

	require.NoError(t, c.DeleteChat(context.Background(), "u-1", "c-1"))
	assert.Equal(t, "DELETE", gotMethod)
	assert.Equal(t, "/chats/u-1/c-1", gotPath)
}

func TestFetchUnreadMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/unread-messages/u-1", r.URL.Path)
		io.WriteString(w, `{"unreadChats":[{"id":"c-1","unread":3},{"id":"c-2","unread":0}]}`)
	}))
	defer srv.Close()

	unread, err := NewClient(srv.URL).FetchUnreadMessages(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c-1": 3, "c-2": 0}, unread)
}

func TestBackendErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"chat not found"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchChatName(context.Background(), "u-1", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "chat not found")
}
