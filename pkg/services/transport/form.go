package transport

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
)

// PartKind distinguishes plain text fields from binary file parts.
type PartKind string

// part kinds
const (
	PartText PartKind = "text"
	PartBlob PartKind = "blob"
)

// FormPart is one field of the outbound multipart body. Every caller
// builds the same typed list, whatever side of a process boundary it
// sits on.
type FormPart struct {
	Kind     PartKind
	Name     string
	Value    string // text
	Filename string // blob
	MimeType string // blob
	Data     []byte // blob
}

func textPart(name, value string) FormPart {
	return FormPart{Kind: PartText, Name: name, Value: value}
}

func blobPart(name, filename, mimeType string, data []byte) FormPart {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return FormPart{Kind: PartBlob, Name: name, Filename: filename, MimeType: mimeType, Data: data}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeForm renders the parts as a multipart/form-data body.
func EncodeForm(parts []FormPart) (*bytes.Buffer, string, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for _, p := range parts {
		switch p.Kind {
		case PartText:
			if err := mw.WriteField(p.Name, p.Value); err != nil {
				return nil, "", err
			}
		case PartBlob:
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(p.Name), quoteEscaper.Replace(p.Filename)))
			h.Set("Content-Type", p.MimeType)
			fw, err := mw.CreatePart(h)
			if err != nil {
				return nil, "", err
			}
			if _, err = fw.Write(p.Data); err != nil {
				return nil, "", err
			}
		default:
			return nil, "", fmt.Errorf("unknown part kind %q", p.Kind)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}

// BuildMessageParts flattens an outbound message into form parts the
// n8n flow expects.
func BuildMessageParts(msg *chat.Message) ([]FormPart, error) {
	parts := []FormPart{
		textPart("chatId", msg.ChatID),
		textPart("sender", string(msg.Sender)),
		textPart("sentDate", msg.SentDate),
		textPart("text", msg.Text),
		textPart("isAudio", strconv.FormatBool(msg.IsAudio)),
		textPart("hasAttachment", strconv.FormatBool(msg.HasAttachment)),
		textPart("duration", strconv.FormatFloat(msg.Duration, 'f', -1, 64)),
		textPart("isMixedAttachments", strconv.FormatBool(msg.IsMixedAttachments)),
	}

	if msg.AudioFileName != "" {
		parts = append(parts,
			textPart("audioFileName", msg.AudioFileName),
			textPart("audioData", msg.AudioData),
			textPart("audioMimeType", msg.AudioMimeType),
		)
		// the flow stores the base64 field and runs transcription off
		// the binary part, hence both
		if msg.AudioData != "" {
			raw, err := decodeBase64(msg.AudioData)
			if err != nil {
				return nil, fmt.Errorf("decode audio data: %w", err)
			}
			parts = append(parts, blobPart("audioFile", msg.AudioFileName, msg.AudioMimeType, raw))
		}
	}

	if len(msg.Files) > 0 {
		fb, err := json.Marshal(msg.Files)
		if err != nil {
			return nil, fmt.Errorf("marshal files: %w", err)
		}
		parts = append(parts, textPart("files", string(fb)))

		var hasImages, hasVideos, hasDocuments, hasAudios bool
		for _, f := range msg.Files {
			hasImages = hasImages || f.IsImage
			hasVideos = hasVideos || f.IsVideo
			hasDocuments = hasDocuments || f.IsDocument
			hasAudios = hasAudios || f.IsAudio
		}
		var kinds int
		for _, b := range []bool{hasImages, hasVideos, hasDocuments, hasAudios} {
			if b {
				kinds++
			}
		}
		mixed := kinds > 1
		parts = append(parts,
			textPart("isImage", strconv.FormatBool(hasImages && !mixed)),
			textPart("isVideo", strconv.FormatBool(hasVideos && !mixed)),
			textPart("isDocument", strconv.FormatBool(hasDocuments && !mixed)),
		)
		if mixed {
			// overrides the field written above
			parts = append(parts, textPart("isMixedAttachments", "true"))
		}
	}

	return parts, nil
}

// decodeBase64 accepts both bare payloads and data-URL prefixed ones.
func decodeBase64(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
