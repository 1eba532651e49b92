package chat

type Chat struct {
	ID              string `json:"id"`
	AssistantID     string `json:"assistant_id"`
	Title           string `json:"title"`
	Unread          int    `json:"unread"`
	IsStarred       bool   `json:"is_starred,omitempty"`
	StarOrder       int    `json:"star_order,omitempty"`
	LastMessageDate string `json:"last_message_date,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	FeedbackPeriod  string `json:"feedback_period,omitempty"`
}

type Chats []Chat

// Assistant is a configured chat persona with its own webhook backend.
type Assistant struct {
	ID         string `json:"id" yaml:"id"`
	UserID     string `json:"user_id,omitempty" yaml:"userId,omitempty"`
	Code       string `json:"code,omitempty" yaml:"code,omitempty"`
	Name       string `json:"name" yaml:"name"`
	Subtitle   string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty" yaml:"avatarUrl,omitempty"`
	WebhookURL string `json:"webhook,omitempty" yaml:"webhookUrl,omitempty"`
	S2SToken   string `json:"s2s_token,omitempty" yaml:"s2sToken,omitempty"`
	IsStarred  bool   `json:"is_starred,omitempty" yaml:"-"`
	StarOrder  int    `json:"star_order,omitempty" yaml:"-"`
}

type Assistants []Assistant

// Preset is the boot-time assistant roster, loaded from a YAML file.
type Preset struct {
	Assistants Assistants `json:"assistants,omitempty" yaml:"assistants,omitempty"`
	Welcome    string     `json:"welcome,omitempty" yaml:"welcome,omitempty"`
}
