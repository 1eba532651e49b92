package chat

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"
)

type Sender string

// senders
const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageStatus is the client-side delivery state of an outbound message.
type MessageStatus string

// statuses
const (
	StatusQueued  MessageStatus = "queued"
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

type FileInfo struct {
	FileName     string `json:"file_name" yaml:"fileName"`
	FileData     string `json:"file_data,omitempty" yaml:"fileData,omitempty"` // base64
	FileMimeType string `json:"file_mime_type" yaml:"fileMimeType"`
	IsVideo      bool   `json:"is_video,omitempty" yaml:"isVideo,omitempty"`
	IsImage      bool   `json:"is_image,omitempty" yaml:"isImage,omitempty"`
	IsDocument   bool   `json:"is_document,omitempty" yaml:"isDocument,omitempty"`
	IsAudio      bool   `json:"is_audio,omitempty" yaml:"isAudio,omitempty"`
}

// VoiceData carries a recorded voice note attached to an outbound message.
type VoiceData struct {
	AudioData     string  `json:"audio_data"` // base64
	AudioFileName string  `json:"audio_file_name"`
	AudioMimeType string  `json:"audio_mime_type"`
	Duration      float64 `json:"duration,omitempty"` // seconds
}

// Message is one chat history record, created optimistically on the
// client with a temp- id and reconciled by the server-issued record.
type Message struct {
	ID       string `json:"id,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	Sender   Sender `json:"sender,omitempty"`
	Text     string `json:"text,omitempty"`
	SentDate string `json:"sent_date,omitempty"`

	Status MessageStatus `json:"status,omitempty"` // client-only

	HasAttachment      bool       `json:"has_attachment,omitempty"`
	Files              []FileInfo `json:"files,omitempty"`
	IsMixedAttachments bool       `json:"is_mixed_attachments,omitempty"`

	IsAudio       bool    `json:"is_audio,omitempty"`
	AudioData     string  `json:"audio_data,omitempty"`
	AudioFileName string  `json:"audio_file_name,omitempty"`
	AudioMimeType string  `json:"audio_mime_type,omitempty"`
	Duration      float64 `json:"duration,omitempty"`

	ArtifactCode    string `json:"artifact_code,omitempty"`
	IsCode          bool   `json:"is_code,omitempty"`
	IsArticle       bool   `json:"is_article,omitempty"`
	ArticleText     string `json:"article_text,omitempty"`
	IsMultiResponse bool   `json:"is_multi_response,omitempty"`
}

type Messages []Message

var tempSeq atomic.Int64

// TempID returns an optimistic message id. The sequence keeps ids
// unique when several sends land in the same millisecond.
func TempID() string {
	return "temp-" + strconv.FormatInt(time.Now().UnixMilli(), 10) +
		"-" + strconv.FormatInt(tempSeq.Add(1), 10)
}

// IsTemp reports whether the id was issued client-side.
func (z *Message) IsTemp() bool {
	return len(z.ID) > 5 && z.ID[:5] == "temp-"
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (z *Message) MarshalBinary() (data []byte, err error) {
	data, err = json.Marshal(z)
	return
}

// UnmarshalBinary unmarshal a binary representation of itself. for redis result.Scan
func (z *Message) UnmarshalBinary(data []byte) error {
	var t Message
	err := json.Unmarshal(data, &t)
	if err == nil {
		*z = t
	}
	return err
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (z Messages) MarshalBinary() (data []byte, err error) {
	data, err = json.Marshal(z)
	return
}

// UnmarshalBinary unmarshal a binary representation of itself. for redis result.Scan
func (z *Messages) UnmarshalBinary(data []byte) error {
	var t Messages
	err := json.Unmarshal(data, &t)
	if err == nil {
		*z = t
	}
	return err
}
