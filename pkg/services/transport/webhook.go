package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

// Webhook delivers outbound messages to an assistant's n8n endpoint as
// multipart/form-data and maps the reply back to a chat record. A
// failed call still yields a renderable assistant message, alongside
// the error.
type Webhook struct {
	hc *http.Client
}

func NewWebhook() *Webhook {
	return &Webhook{
		hc: &http.Client{
			Timeout:   settings.Current.WebhookTimeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
	}
}

// Send posts msg to {assistantURL}/{userID} and returns the assistant
// reply. On failure the returned message is a synthetic assistant
// record carrying the error text, and err is non-nil.
func (w *Webhook) Send(ctx context.Context, assistantURL, userID string, msg *chat.Message) (chat.Message, error) {
	if assistantURL == "" {
		err := errors.New("no webhook url configured")
		return syntheticError(msg.ChatID, "No webhook URL configured for this assistant."), err
	}

	parts, err := BuildMessageParts(msg)
	if err != nil {
		return syntheticError(msg.ChatID, "Error sending message to webhook: "+err.Error()), err
	}
	body, contentType, err := EncodeForm(parts)
	if err != nil {
		return syntheticError(msg.ChatID, "Error sending message to webhook: "+err.Error()), err
	}

	endpoint := strings.TrimSuffix(assistantURL, "/") + "/" + userID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return syntheticError(msg.ChatID, "Error sending message to webhook: "+err.Error()), err
	}
	req.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := w.hc.Do(req)
	if err != nil {
		logger().Infow("webhook request fail", "endpoint", endpoint, "err", err)
		return syntheticError(msg.ChatID, classifyNetError(err)), err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return syntheticError(msg.ChatID, "Error reading webhook response: "+err.Error()), err
	}
	logger().Infow("webhook done", "endpoint", endpoint, "status", resp.StatusCode,
		"bytes", len(raw), "took", time.Since(started))

	if resp.StatusCode >= 400 {
		err = fmt.Errorf("webhook status %d", resp.StatusCode)
		return syntheticError(msg.ChatID,
			fmt.Sprintf("Server error: HTTP %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))), err
	}

	ct := resp.Header.Get("Content-Type")
	if isAudioContent(ct) {
		return audioReply(msg.ChatID, ct, raw), nil
	}

	reply, derr := chat.DecodeMessage(raw)
	if derr != nil {
		// non-JSON body becomes the message text as-is
		return textReply(msg.ChatID, strings.TrimSpace(string(raw))), nil
	}
	if reply.ID == "" {
		reply.ID = "srv-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	if reply.ChatID == "" {
		reply.ChatID = msg.ChatID
	}
	if reply.Sender == "" {
		reply.Sender = chat.SenderAssistant
	}
	if reply.SentDate == "" {
		reply.SentDate = time.Now().UTC().Format(time.RFC3339)
	}
	return reply, nil
}

func isAudioContent(ct string) bool {
	return strings.Contains(ct, "audio/") ||
		strings.Contains(ct, "application/octet-stream") ||
		strings.Contains(ct, "binary")
}

func classifyNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Request timed out after %s", settings.Current.WebhookTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return "Request canceled"
	}
	return "Network error: unable to connect to webhook server. Check URL and internet connection."
}

func syntheticError(chatID, text string) chat.Message {
	now := time.Now()
	return chat.Message{
		ID:       "error-" + strconv.FormatInt(now.UnixMilli(), 10),
		ChatID:   chatID,
		Sender:   chat.SenderAssistant,
		Text:     text,
		SentDate: now.UTC().Format(time.RFC3339),
	}
}

func textReply(chatID, text string) chat.Message {
	now := time.Now()
	if text == "" {
		text = "Server Error"
	}
	return chat.Message{
		ID:       "srv-" + strconv.FormatInt(now.UnixMilli(), 10),
		ChatID:   chatID,
		Sender:   chat.SenderAssistant,
		Text:     text,
		SentDate: now.UTC().Format(time.RFC3339),
	}
}

func audioReply(chatID, contentType string, raw []byte) chat.Message {
	now := time.Now()
	mime := contentType
	if !strings.Contains(mime, "audio/") {
		mime = "audio/mpeg"
	}
	return chat.Message{
		ID:            "audio-response-" + strconv.FormatInt(now.UnixMilli(), 10),
		ChatID:        chatID,
		Sender:        chat.SenderAssistant,
		SentDate:      now.UTC().Format(time.RFC3339),
		IsAudio:       true,
		AudioData:     encodeBase64(raw),
		AudioFileName: fmt.Sprintf("audio_response_%d.mp3", now.UnixMilli()),
		AudioMimeType: mime,
	}
}
