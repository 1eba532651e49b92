// Package notify keeps unread counters fresh by polling the sync
// backend on an interval.
package notify

import (
	"context"
	"time"

	"github.com/brandgrowthos/bgos/pkg/services/stores"
	"github.com/brandgrowthos/bgos/pkg/settings"
)

// UnreadFetcher is the slice of the backend client the poller needs.
type UnreadFetcher interface {
	FetchUnreadMessages(ctx context.Context, userID string) (map[string]int, error)
}

type Poller struct {
	fetcher  UnreadFetcher
	state    *stores.State
	userID   string
	interval time.Duration
}

func NewPoller(fetcher UnreadFetcher, state *stores.State, userID string) *Poller {
	return &Poller{
		fetcher:  fetcher,
		state:    state,
		userID:   userID,
		interval: settings.Current.UnreadInterval,
	}
}

// Run polls until the context ends. The first fetch happens right away
// so the client never waits a full interval after boot.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	unread, err := p.fetcher.FetchUnreadMessages(ctx, p.userID)
	if err != nil {
		logger().Infow("fetch unread fail", "user", p.userID, "err", err)
		return
	}
	p.state.SetUnread(unread)
}
