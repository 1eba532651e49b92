// Package backend talks to the n8n sync flows that persist chats and
// history server-side. All responses pass through the tolerant payload
// mappers, so snake_case and camelCase flows coexist.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

// Client is a thin client for the sync backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = settings.Current.SyncBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs one JSON request against the sync backend.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		logger().Infow("backend request fail", "method", method, "path", path,
			"status", resp.StatusCode, "msg", msg)
		return nil, fmt.Errorf("backend error %d: %s", resp.StatusCode, msg)
	}

	return respBody, nil
}

// decodeRecord tolerates the n8n habit of wrapping single objects in a
// one-element array.
func decodeRecord(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var arr []map[string]any
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		if len(arr) == 0 {
			return map[string]any{}, nil
		}
		return arr[0], nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeRecords(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '{' {
		m, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		return []map[string]any{m}, nil
	}
	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

// FetchAssistantsWithChats loads the assistant roster with each
// assistant's chats nested under a "chats" key.
func (c *Client) FetchAssistantsWithChats(ctx context.Context, userID string) (chat.Assistants, chat.Chats, error) {
	body, err := c.doRequest(ctx, "GET", "/assistants-with-chats/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, nil, err
	}
	records, err := decodeRecords(body)
	if err != nil {
		return nil, nil, err
	}

	var assistants chat.Assistants
	var chats chat.Chats
	for _, rec := range records {
		ast := chat.AssistantFromPayload(rec)
		assistants = append(assistants, ast)
		if nested, ok := rec["chats"].([]any); ok {
			for _, n := range nested {
				if cm, ok := n.(map[string]any); ok {
					cc := chat.ChatFromPayload(cm)
					if cc.AssistantID == "" {
						cc.AssistantID = ast.ID
					}
					chats = append(chats, cc)
				}
			}
		}
	}
	return assistants, chats, nil
}

// FetchChatHistory loads the persisted messages of one chat.
func (c *Client) FetchChatHistory(ctx context.Context, userID, chatID string) (chat.Messages, error) {
	body, err := c.doRequest(ctx, "GET",
		"/chat-history/"+url.PathEscape(userID)+"/"+url.PathEscape(chatID), nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}
	var msgs chat.Messages
	for _, rec := range records {
		msgs = append(msgs, chat.MessageFromPayload(rec))
	}
	return msgs, nil
}

// AddChat creates a chat for an assistant, named after its first message.
func (c *Client) AddChat(ctx context.Context, userID, assistantID, firstMessage string) (chat.Chat, error) {
	reqBody, _ := json.Marshal(map[string]string{
		"chatFirstMessage": firstMessage,
		"assistantId":      assistantID,
	})
	body, err := c.doRequest(ctx, "POST", "/"+url.PathEscape(userID)+"/chats", reqBody)
	if err != nil {
		return chat.Chat{}, err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return chat.Chat{}, err
	}
	cc := chat.ChatFromPayload(rec)
	if cc.AssistantID == "" {
		cc.AssistantID = assistantID
	}
	return cc, nil
}

// RenameChat sets a new display name on an existing chat.
func (c *Client) RenameChat(ctx context.Context, userID, chatID, name string) error {
	reqBody, _ := json.Marshal(map[string]string{"chatName": name})
	_, err := c.doRequest(ctx, "PATCH",
		"/chats/"+url.PathEscape(userID)+"/"+url.PathEscape(chatID), reqBody)
	return err
}

// DeleteChat removes a chat and its server-side history.
func (c *Client) DeleteChat(ctx context.Context, userID, chatID string) error {
	_, err := c.doRequest(ctx, "DELETE",
		"/chats/"+url.PathEscape(userID)+"/"+url.PathEscape(chatID), nil)
	return err
}

// FetchChatName polls the generated chat name, which lags chat creation
// while the flow summarizes the first message.
func (c *Client) FetchChatName(ctx context.Context, userID, chatID string) (string, error) {
	body, err := c.doRequest(ctx, "GET",
		"/chat-name/"+url.PathEscape(userID)+"/"+url.PathEscape(chatID), nil)
	if err != nil {
		return "", err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return "", err
	}
	return chat.ChatFromPayload(rec).Title, nil
}

// FetchUnreadMessages returns unread counters keyed by chat id.
func (c *Client) FetchUnreadMessages(ctx context.Context, userID string) (map[string]int, error) {
	body, err := c.doRequest(ctx, "GET", "/unread-messages/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	raw, _ := rec["unreadChats"].([]any)
	if raw == nil {
		raw, _ = rec["unread_chats"].([]any)
	}
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			cc := chat.ChatFromPayload(m)
			if cc.ID != "" {
				out[cc.ID] = cc.Unread
			}
		}
	}
	return out, nil
}

// AssignScheduledChat binds a scheduled feedback flow to a chat.
func (c *Client) AssignScheduledChat(ctx context.Context, userID, chatID, subject, period, code string) error {
	reqBody, _ := json.Marshal(map[string]string{
		"subject": subject,
		"period":  period,
		"code":    code,
	})
	_, err := c.doRequest(ctx, "POST",
		"/assign-scheduled/"+url.PathEscape(userID)+"/"+url.PathEscape(chatID), reqBody)
	return err
}
