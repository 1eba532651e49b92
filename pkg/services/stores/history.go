package stores

import (
	"context"

	"github.com/cupogo/andvari/models/oid"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

// HistoryCache keeps the recent messages of one chat in redis, so a
// restarted gateway can render before the backend sync completes.
type HistoryCache interface {
	GetID() string
	Append(ctx context.Context, msg *chat.Message) error
	List(ctx context.Context) (chat.Messages, error)
	Clear(ctx context.Context) error
}

func NewHistoryCache(chatID string) HistoryCache {
	if chatID == "" {
		chatID = oid.NewID(oid.OtEvent).String()
	}
	return &historyCache{id: chatID, rc: SgtRC()}
}

type historyCache struct {
	id string
	rc RedisClient
}

func (s *historyCache) GetID() string {
	return s.id
}

func (s *historyCache) Append(ctx context.Context, msg *chat.Message) error {
	key := s.getKey()
	b, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	res := s.rc.RPush(ctx, key, b)
	err = res.Err()
	if err == nil {
		logger().Debugw("append history ok", "chat", s.id, "msg", msg.ID)
		count, _ := res.Result()
		if err = s.rc.Expire(ctx, key, settings.Current.HistoryLifetime).Err(); err != nil {
			return err
		}
		if count > settings.Current.HistoryMaxLength {
			logger().Infow("history length overflow", "chat", s.id, "count", count)
			err = s.rc.LPop(ctx, key).Err()
		}
	}
	if err != nil {
		logger().Infow("append history fail", "key", key, "err", err)
	}
	return err
}

func (s *historyCache) List(ctx context.Context) (data chat.Messages, err error) {
	ss := s.rc.LRange(ctx, s.getKey(), 0, -1)
	err = ss.ScanSlice(&data)
	return
}

func (s *historyCache) Clear(ctx context.Context) error {
	return s.rc.Del(ctx, s.getKey()).Err()
}

func (s *historyCache) getKey() string {
	return "chat-history-" + s.id
}
