package chat

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// The n8n flows answer in snake_case, while older flows and the mobile
// bridge still emit camelCase. All ingress paths decode through the
// mappers below so the tolerance lives in exactly one place.

func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func pickS(m map[string]any, keys ...string) string {
	return cast.ToString(pick(m, keys...))
}

func pickB(m map[string]any, keys ...string) bool {
	return cast.ToBool(pick(m, keys...))
}

// MessageFromPayload maps one loosely-typed server record to a Message.
func MessageFromPayload(m map[string]any) Message {
	out := Message{
		ID:                 pickS(m, "id"),
		ChatID:             pickS(m, "chat_id", "chatId"),
		Sender:             Sender(pickS(m, "sender")),
		Text:               pickS(m, "text"),
		SentDate:           pickS(m, "sent_date", "sentDate"),
		HasAttachment:      pickB(m, "has_attachment", "hasAttachment"),
		IsMixedAttachments: pickB(m, "is_mixed_attachments", "isMixedAttachments"),
		IsAudio:            pickB(m, "is_audio", "isAudio"),
		AudioData:          pickS(m, "audio_data", "audioData"),
		AudioFileName:      pickS(m, "audio_file_name", "audioFileName"),
		AudioMimeType:      pickS(m, "audio_mime_type", "audioMimeType"),
		Duration:           cast.ToFloat64(pick(m, "duration")),
		ArtifactCode:       pickS(m, "artifact_code", "artifactCode"),
		IsCode:             pickB(m, "is_code", "isCode"),
		IsArticle:          pickB(m, "is_article", "isArticle"),
		ArticleText:        pickS(m, "article_text", "articleText"),
		IsMultiResponse:    pickB(m, "is_multi_response", "isMultiResponse"),
	}
	if st := pickS(m, "status"); st != "" {
		out.Status = MessageStatus(st)
	}
	if files, ok := pick(m, "files").([]any); ok {
		for _, f := range files {
			if fm, ok := f.(map[string]any); ok {
				out.Files = append(out.Files, FileFromPayload(fm))
			}
		}
	}
	return out
}

// FileFromPayload maps one attachment record.
func FileFromPayload(m map[string]any) FileInfo {
	return FileInfo{
		FileName:     pickS(m, "file_name", "fileName"),
		FileData:     pickS(m, "file_data", "fileData"),
		FileMimeType: pickS(m, "file_mime_type", "fileMimeType"),
		IsVideo:      pickB(m, "is_video", "isVideo"),
		IsImage:      pickB(m, "is_image", "isImage"),
		IsDocument:   pickB(m, "is_document", "isDocument"),
		IsAudio:      pickB(m, "is_audio", "isAudio"),
	}
}

// ChatFromPayload maps one chat record.
func ChatFromPayload(m map[string]any) Chat {
	return Chat{
		ID:              pickS(m, "id"),
		AssistantID:     pickS(m, "assistant_id", "assistantId"),
		Title:           pickS(m, "title", "chat_name", "chatName", "name"),
		Unread:          cast.ToInt(pick(m, "unread")),
		IsStarred:       pickB(m, "is_starred", "isStarred"),
		StarOrder:       cast.ToInt(pick(m, "star_order", "starOrder")),
		LastMessageDate: pickS(m, "last_message_date", "lastMessageDate"),
		CreatedAt:       pickS(m, "created_at", "createdAt"),
		FeedbackPeriod:  pickS(m, "feedback_period", "feedbackPeriod"),
	}
}

// AssistantFromPayload maps one assistant record.
func AssistantFromPayload(m map[string]any) Assistant {
	return Assistant{
		ID:         pickS(m, "id"),
		UserID:     pickS(m, "user_id", "userId"),
		Code:       pickS(m, "code"),
		Name:       pickS(m, "name"),
		Subtitle:   pickS(m, "subtitle"),
		AvatarURL:  pickS(m, "avatar_url", "avatarUrl"),
		WebhookURL: pickS(m, "webhook", "webhookUrl", "webhook_url"),
		S2SToken:   pickS(m, "s2s_token", "s2sToken"),
		IsStarred:  pickB(m, "is_starred", "isStarred"),
		StarOrder:  cast.ToInt(pick(m, "star_order", "starOrder")),
	}
}

// DecodeMessage decodes a raw JSON record in either key form.
func DecodeMessage(data []byte) (Message, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return MessageFromPayload(m), nil
}
