package settings

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// consts
const (
	Name = "Bgos"
)

// Config ...
type Config struct {
	Name    string `ignored:"true"`
	Version string `ignored:"true"`

	HTTPListen   string   `envconfig:"HTTP_LISTEN" default:":5100"`
	RedisURI     string   `envconfig:"redis_uri" default:"redis://localhost:6379/2"`
	AllowOrigins []string `envconfig:"allow_origins" default:"*"`

	// n8n CRUD backend root, e.g. https://n8n.example.com/webhook/<flow-id>
	SyncBaseURL string `envconfig:"sync_base_url"`
	// authenticated user the gateway works on behalf of
	UserID string `envconfig:"user_id"`

	WebhookTimeout time.Duration `envconfig:"webhook_timeout" default:"120s"`
	UnreadInterval time.Duration `envconfig:"unread_interval" default:"30s"`
	RateLimit      string        `envconfig:"rate_limit" default:"120-M"`

	AssistantsFile string `envconfig:"assistants_file"`

	VoiceAPIKey string `envconfig:"elevenlabs_api_key"`
	VoiceWSBase string `envconfig:"voice_ws_base" default:"wss://api.elevenlabs.io"`

	HistoryLifetime  time.Duration `envconfig:"history_lifetime" default:"24h"`
	HistoryMaxLength int64         `envconfig:"history_max_length" default:"200"`

	Develop bool `envconfig:"develop"`
}

var (
	// Current 当前配置
	Current = new(Config)
)

func init() {
	if err := envconfig.Process(Name, Current); err != nil {
		log.Printf("envconfig process fail: %s", err)
	}

	Current.Name = Name
	Current.Version = version
}

// Usage 打印配置帮助
func Usage() error {
	log.Printf("ver: %s", Current.Version)
	return envconfig.Usage(Current.Name, Current)
}

// AllowAllOrigins ...
func AllowAllOrigins() bool {
	return 0 == len(Current.AllowOrigins) ||
		1 == len(Current.AllowOrigins) && Current.AllowOrigins[0] == "*"
}
