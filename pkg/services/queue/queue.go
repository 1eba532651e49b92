package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/services/stores"
)

// Transport delivers one outbound message and returns the assistant
// reply. On failure the reply is still a renderable record.
type Transport interface {
	Send(ctx context.Context, assistantURL, userID string, msg *chat.Message) (chat.Message, error)
}

// QueuedMessage is the ephemeral envelope held while a send waits its
// turn. It never leaves the queue.
type QueuedMessage struct {
	ID             string
	ChatID         string
	Text           string
	Files          []chat.FileInfo
	Voice          *chat.VoiceData
	OverrideChatID string
}

type Config struct {
	ChatID     string
	WebhookURL string
	// ResolveWebhook overrides WebhookURL when set. It is consulted on
	// every send, so assistant config arriving after the queue was
	// created still takes effect.
	ResolveWebhook func() string
	UserID         string

	State     *stores.State
	Cache     stores.HistoryCache // optional
	Transport Transport
}

// Queue accepts sends without blocking the caller and drains them one
// at a time, in order, reflecting progress on the state store:
// queued → sending → sent|failed. One worker goroutine per queue, so
// at most one transport call is in flight.
type Queue struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	items      []QueuedMessage
	processing bool
	wake       chan struct{}
}

func New(cfg Config) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	go q.run()
	return q
}

func (q *Queue) webhookURL() string {
	if q.cfg.ResolveWebhook != nil {
		return q.cfg.ResolveWebhook()
	}
	return q.cfg.WebhookURL
}

// Stop ends the worker. In-flight transport calls are canceled.
func (q *Queue) Stop() {
	q.cancel()
}

// Len is the number of messages still waiting (excludes in-flight).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsProcessing reports whether a send is in flight.
func (q *Queue) IsProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// Send dispatches an optimistic record into the state store and
// appends the message to the queue. It never blocks on the network.
// Empty sends are a no-op; a missing webhook URL produces a single
// synthetic assistant error without touching the queue.
func (q *Queue) Send(text string, files []chat.FileInfo, voice *chat.VoiceData, overrideChatID string) {
	if text == "" && len(files) == 0 && voice == nil {
		return
	}

	chatID := q.cfg.ChatID
	if overrideChatID != "" {
		chatID = overrideChatID
	}

	if q.webhookURL() == "" {
		now := time.Now()
		q.cfg.State.AddMessage(chat.Message{
			ID:       "error-" + strconv.FormatInt(now.UnixMilli(), 10),
			ChatID:   chatID,
			Sender:   chat.SenderAssistant,
			Text:     "No webhook URL configured for this assistant.",
			SentDate: now.UTC().Format(time.RFC3339),
		})
		return
	}

	id := chat.TempID()

	q.mu.Lock()
	st := chat.StatusSending
	if q.processing || len(q.items) > 0 {
		st = chat.StatusQueued
	}
	optimistic := buildOutbound(id, chatID, text, files, voice)
	optimistic.Status = st
	q.cfg.State.AddMessage(optimistic)
	q.items = append(q.items, QueuedMessage{
		ID:             id,
		ChatID:         chatID,
		Text:           text,
		Files:          files,
		Voice:          voice,
		OverrideChatID: overrideChatID,
	})
	q.mu.Unlock()

	logger().Debugw("enqueued", "id", id, "chat", chatID, "status", st)

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		for {
			q.mu.Lock()
			if len(q.items) == 0 {
				q.processing = false
				q.mu.Unlock()
				break
			}
			item := q.items[0]
			q.items = q.items[1:]
			q.processing = true
			q.mu.Unlock()

			q.process(item)

			if q.ctx.Err() != nil {
				return
			}
		}
	}
}

func (q *Queue) process(item QueuedMessage) {
	chatID := item.ChatID
	if item.OverrideChatID != "" {
		chatID = item.OverrideChatID
	}

	// refresh the date so the entry reorders below replies that landed
	// while it waited
	sentDate := time.Now().UTC().Format(time.RFC3339)
	q.cfg.State.UpdateMessage(chatID, item.ID, func(m *chat.Message) {
		m.SentDate = sentDate
	})
	q.cfg.State.UpdateMessageStatus(chatID, item.ID, chat.StatusSending)

	outbound := buildOutbound(item.ID, chatID, item.Text, item.Files, item.Voice)
	outbound.SentDate = sentDate

	reply, err := q.cfg.Transport.Send(q.ctx, q.webhookURL(), q.cfg.UserID, &outbound)
	if err != nil {
		logger().Infow("send fail", "id", item.ID, "chat", chatID, "err", err)
		q.cfg.State.UpdateMessageStatus(chatID, item.ID, chat.StatusFailed)
		return
	}

	q.cfg.State.UpdateMessageStatus(chatID, item.ID, chat.StatusSent)
	q.cfg.State.AddMessage(reply)

	if q.cfg.Cache != nil {
		outbound.Status = chat.StatusSent
		if cerr := q.cfg.Cache.Append(q.ctx, &outbound); cerr != nil {
			logger().Infow("cache outbound fail", "id", item.ID, "err", cerr)
		}
		if cerr := q.cfg.Cache.Append(q.ctx, &reply); cerr != nil {
			logger().Infow("cache reply fail", "id", reply.ID, "err", cerr)
		}
	}
}

func buildOutbound(id, chatID, text string, files []chat.FileInfo, voice *chat.VoiceData) chat.Message {
	msg := chat.Message{
		ID:            id,
		ChatID:        chatID,
		Sender:        chat.SenderUser,
		Text:          text,
		SentDate:      time.Now().UTC().Format(time.RFC3339),
		HasAttachment: len(files) > 0,
		Files:         files,
	}
	if msg.Text == "" && len(files) > 0 {
		msg.Text = fmt.Sprintf("[%d file(s) attached]", len(files))
	}
	if voice != nil {
		msg.IsAudio = true
		msg.AudioData = voice.AudioData
		msg.AudioFileName = voice.AudioFileName
		msg.AudioMimeType = voice.AudioMimeType
		msg.Duration = voice.Duration
	}
	return msg
}
