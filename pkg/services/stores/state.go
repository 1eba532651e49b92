package stores

import (
	"sync"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
)

// EventKind names one change on the application state.
type EventKind string

// event kinds
const (
	EvMessageAdded      EventKind = "message-added"
	EvMessageUpdated    EventKind = "message-updated"
	EvStatusChanged     EventKind = "status-changed"
	EvHistoryReplaced   EventKind = "history-replaced"
	EvChatsChanged      EventKind = "chats-changed"
	EvAssistantsChanged EventKind = "assistants-changed"
	EvUnreadChanged     EventKind = "unread-changed"
)

// StateEvent is pushed to subscribers after each mutation.
type StateEvent struct {
	Kind    EventKind          `json:"kind"`
	ChatID  string             `json:"chat_id,omitempty"`
	Message *chat.Message      `json:"message,omitempty"`
	Status  chat.MessageStatus `json:"status,omitempty"`
	Unread  map[string]int     `json:"unread,omitempty"`
}

// State holds everything the UI renders: assistants, chats, per-chat
// history and unread counts. All mutation goes through its methods;
// the mutex is the dispatch discipline.
type State struct {
	mu sync.RWMutex

	assistants chat.Assistants
	chats      chat.Chats
	history    map[string]chat.Messages
	unread     map[string]int

	subMu   sync.Mutex
	subs    map[int64]chan StateEvent
	nextSub int64
}

func NewState() *State {
	return &State{
		history: make(map[string]chat.Messages),
		unread:  make(map[string]int),
		subs:    make(map[int64]chan StateEvent),
	}
}

// Subscribe returns a buffered change feed. Slow consumers lose events
// instead of blocking mutations.
func (s *State) Subscribe() (int64, <-chan StateEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	ch := make(chan StateEvent, 64)
	s.subs[id] = ch
	return id, ch
}

func (s *State) Unsubscribe(id int64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *State) publish(ev StateEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *State) SetAssistants(data chat.Assistants) {
	s.mu.Lock()
	s.assistants = data
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvAssistantsChanged})
}

func (s *State) Assistants() chat.Assistants {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(chat.Assistants, len(s.assistants))
	copy(out, s.assistants)
	return out
}

// Assistant looks an assistant up by id or code.
func (s *State) Assistant(key string) (chat.Assistant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assistants {
		if a.ID == key || (a.Code != "" && a.Code == key) {
			return a, true
		}
	}
	return chat.Assistant{}, false
}

func (s *State) SetChats(data chat.Chats) {
	s.mu.Lock()
	s.chats = data
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvChatsChanged})
}

func (s *State) Chats() chat.Chats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(chat.Chats, len(s.chats))
	copy(out, s.chats)
	return out
}

func (s *State) Chat(id string) (chat.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.ID == id {
			return c, true
		}
	}
	return chat.Chat{}, false
}

func (s *State) AddChat(c chat.Chat) {
	s.mu.Lock()
	s.chats = append(s.chats, c)
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvChatsChanged, ChatID: c.ID})
}

func (s *State) RenameChat(id, title string) bool {
	s.mu.Lock()
	var found bool
	for i := range s.chats {
		if s.chats[i].ID == id {
			s.chats[i].Title = title
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.publish(StateEvent{Kind: EvChatsChanged, ChatID: id})
	}
	return found
}

func (s *State) RemoveChat(id string) {
	s.mu.Lock()
	out := s.chats[:0]
	for _, c := range s.chats {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.chats = out
	delete(s.history, id)
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvChatsChanged, ChatID: id})
}

// SetChatHistory replaces the history of one chat, e.g. after a sync.
func (s *State) SetChatHistory(chatID string, data chat.Messages) {
	s.mu.Lock()
	s.history[chatID] = data
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvHistoryReplaced, ChatID: chatID})
}

func (s *State) ChatHistory(chatID string) chat.Messages {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.history[chatID]
	out := make(chat.Messages, len(src))
	copy(out, src)
	return out
}

func (s *State) AddMessage(msg chat.Message) {
	s.mu.Lock()
	s.history[msg.ChatID] = append(s.history[msg.ChatID], msg)
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvMessageAdded, ChatID: msg.ChatID, Message: &msg})
}

// UpdateMessage applies a mutator to one message in place.
func (s *State) UpdateMessage(chatID, id string, apply func(*chat.Message)) bool {
	s.mu.Lock()
	var updated *chat.Message
	for i := range s.history[chatID] {
		if s.history[chatID][i].ID == id {
			apply(&s.history[chatID][i])
			cp := s.history[chatID][i]
			updated = &cp
			break
		}
	}
	s.mu.Unlock()
	if updated == nil {
		return false
	}
	s.publish(StateEvent{Kind: EvMessageUpdated, ChatID: chatID, Message: updated})
	return true
}

// UpdateMessageStatus moves one message along its delivery state.
func (s *State) UpdateMessageStatus(chatID, id string, st chat.MessageStatus) bool {
	s.mu.Lock()
	var updated *chat.Message
	for i := range s.history[chatID] {
		if s.history[chatID][i].ID == id {
			s.history[chatID][i].Status = st
			cp := s.history[chatID][i]
			updated = &cp
			break
		}
	}
	s.mu.Unlock()
	if updated == nil {
		return false
	}
	s.publish(StateEvent{Kind: EvStatusChanged, ChatID: chatID, Message: updated, Status: st})
	return true
}

func (s *State) RemoveMessage(chatID, id string) {
	s.mu.Lock()
	list := s.history[chatID]
	out := list[:0]
	for _, m := range list {
		if m.ID != id {
			out = append(out, m)
		}
	}
	s.history[chatID] = out
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvMessageUpdated, ChatID: chatID})
}

func (s *State) ClearChatHistory(chatID string) {
	s.mu.Lock()
	delete(s.history, chatID)
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvHistoryReplaced, ChatID: chatID})
}

func (s *State) SetUnread(counts map[string]int) {
	s.mu.Lock()
	s.unread = counts
	for i := range s.chats {
		s.chats[i].Unread = counts[s.chats[i].ID]
	}
	s.mu.Unlock()
	s.publish(StateEvent{Kind: EvUnreadChanged, Unread: counts})
}

func (s *State) Unread() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.unread))
	for k, v := range s.unread {
		out[k] = v
	}
	return out
}
