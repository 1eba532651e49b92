package web

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/marcsv/go-binder/binder"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/services/artifacts"
)

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	apiOk(w, r, M{"user_id": s.userID})
}

func (s *server) getWelcome(w http.ResponseWriter, r *http.Request) {
	apiOk(w, r, M{"welcome": s.welcome})
}

// postSync pulls the assistant roster and chat list from the backend
// and replaces the in-memory state.
func (s *server) postSync(w http.ResponseWriter, r *http.Request) {
	assistants, chats, err := s.be.FetchAssistantsWithChats(r.Context(), s.userID)
	if err != nil {
		apiFail(w, r, 502, err)
		return
	}
	if len(assistants) > 0 {
		s.state.SetAssistants(assistants)
	}
	s.state.SetChats(chats)
	apiOk(w, r, M{"assistants": len(assistants), "chats": len(chats)})
}

func (s *server) getAssistants(w http.ResponseWriter, r *http.Request) {
	data := s.state.Assistants()
	apiOk(w, r, data, len(data))
}

func (s *server) getChats(w http.ResponseWriter, r *http.Request) {
	data := s.state.Chats()
	apiOk(w, r, data, len(data))
}

type chatCreateReq struct {
	AssistantID  string `json:"assistant_id"`
	FirstMessage string `json:"first_message"`
}

func (s *server) postChat(w http.ResponseWriter, r *http.Request) {
	var param chatCreateReq
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	if param.AssistantID == "" {
		apiFail(w, r, 400, "empty assistant_id")
		return
	}
	cc, err := s.be.AddChat(r.Context(), s.userID, param.AssistantID, param.FirstMessage)
	if err != nil {
		apiFail(w, r, 502, err)
		return
	}
	s.state.AddChat(cc)
	logger().Infow("chat created", "chat", cc.ID, "assistant", cc.AssistantID)
	apiOk(w, r, cc)
}

type chatRenameReq struct {
	Title string `json:"title"`
}

func (s *server) patchChat(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	var param chatRenameReq
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	if err := s.be.RenameChat(r.Context(), s.userID, cid, param.Title); err != nil {
		apiFail(w, r, 502, err)
		return
	}
	s.state.RenameChat(cid, param.Title)
	apiOk(w, r, M{"id": cid, "title": param.Title})
}

func (s *server) deleteChat(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if err := s.be.DeleteChat(r.Context(), s.userID, cid); err != nil {
		apiFail(w, r, 502, err)
		return
	}
	s.dropQueue(cid)
	s.state.RemoveChat(cid)
	if err := s.sto.History(cid).Clear(r.Context()); err != nil {
		logger().Infow("clear history cache fail", "chat", cid, "err", err)
	}
	apiOk(w, r, nil)
}

// getChatName polls the generated title, which lags creation while the
// backend summarizes the first message.
func (s *server) getChatName(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	name, err := s.be.FetchChatName(r.Context(), s.userID, cid)
	if err != nil {
		apiFail(w, r, 502, err)
		return
	}
	if name != "" {
		s.state.RenameChat(cid, name)
	}
	apiOk(w, r, M{"id": cid, "title": name})
}

// getHistory answers from state, then the redis cache, then the
// backend. Whatever the backend returns becomes the new state.
func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	if data := s.state.ChatHistory(cid); len(data) > 0 {
		apiOk(w, r, data, len(data))
		return
	}

	if data, err := s.sto.History(cid).List(r.Context()); err == nil && len(data) > 0 {
		s.state.SetChatHistory(cid, data)
		apiOk(w, r, data, len(data))
		return
	}

	data, err := s.be.FetchChatHistory(r.Context(), s.userID, cid)
	if err != nil {
		apiFail(w, r, 502, err)
		return
	}
	for i := range data {
		artifacts.ApplyToMessage(&data[i])
	}
	s.state.SetChatHistory(cid, data)
	apiOk(w, r, data, len(data))
}

func (s *server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	s.state.ClearChatHistory(cid)
	if err := s.sto.History(cid).Clear(r.Context()); err != nil {
		logger().Infow("clear history cache fail", "chat", cid, "err", err)
	}
	apiOk(w, r, nil)
}

type messageSendReq struct {
	Text           string          `json:"text"`
	Files          []chat.FileInfo `json:"files,omitempty"`
	Voice          *chat.VoiceData `json:"voice,omitempty"`
	OverrideChatID string          `json:"override_chat_id,omitempty"`
}

// postMessage enqueues an outbound message. The reply lands on the
// event stream when the webhook answers.
func (s *server) postMessage(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	var param messageSendReq
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	if param.Text == "" && len(param.Files) == 0 && param.Voice == nil {
		apiFail(w, r, 400, "empty message")
		return
	}

	q := s.queueFor(cid)
	q.Send(param.Text, param.Files, param.Voice, param.OverrideChatID)
	apiOk(w, r, M{"length": q.Len(), "processing": q.IsProcessing()})
}

func (s *server) getQueue(w http.ResponseWriter, r *http.Request) {
	q := s.queueFor(chi.URLParam(r, "cid"))
	apiOk(w, r, M{"length": q.Len(), "processing": q.IsProcessing()})
}

func (s *server) getUnread(w http.ResponseWriter, r *http.Request) {
	apiOk(w, r, s.state.Unread())
}

type scheduledReq struct {
	Subject string `json:"subject"`
	Period  string `json:"period"`
	Code    string `json:"code"`
}

func (s *server) postScheduled(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	var param scheduledReq
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	if err := s.be.AssignScheduledChat(r.Context(), s.userID, cid,
		param.Subject, param.Period, param.Code); err != nil {
		apiFail(w, r, 502, err)
		return
	}
	apiOk(w, r, nil)
}

type voiceConnectReq struct {
	ConversationID string `json:"conversation_id"`
}

func (s *server) postVoiceConnect(w http.ResponseWriter, r *http.Request) {
	var param voiceConnectReq
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	if param.ConversationID == "" {
		apiFail(w, r, 400, "empty conversation_id")
		return
	}
	s.vs.Connect(param.ConversationID)
	apiOk(w, r, M{"state": s.vs.State()})
}

func (s *server) postVoiceDisconnect(w http.ResponseWriter, r *http.Request) {
	s.vs.Disconnect()
	apiOk(w, r, M{"state": s.vs.State()})
}

func (s *server) getVoiceState(w http.ResponseWriter, r *http.Request) {
	apiOk(w, r, M{"state": s.vs.State(), "connected": s.vs.IsConnected()})
}

type articleReq struct {
	HTML string `json:"html,omitempty"`
	URL  string `json:"url,omitempty"`
}

// postArticle converts an article payload, or a fetched page, into a
// markdown artifact.
func (s *server) postArticle(w http.ResponseWriter, r *http.Request) {
	var param articleReq
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}

	if param.URL != "" {
		pageURL, err := url.Parse(param.URL)
		if err != nil {
			apiFail(w, r, 400, err)
			return
		}
		req, err := http.NewRequestWithContext(r.Context(), "GET", param.URL, nil)
		if err != nil {
			apiFail(w, r, 400, err)
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			apiFail(w, r, 502, err)
			return
		}
		defer resp.Body.Close()
		art, err := artifacts.Distill(resp.Body, pageURL)
		if err != nil {
			apiFail(w, r, 422, err)
			return
		}
		apiOk(w, r, art)
		return
	}

	if param.HTML == "" {
		apiFail(w, r, 400, "empty html")
		return
	}
	art, err := artifacts.FromHTML(param.HTML)
	if err != nil {
		apiFail(w, r, 422, err)
		return
	}
	apiOk(w, r, art)
}
