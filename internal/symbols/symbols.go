package symbols

import (
	"context"
	"exchange-telegram-bot/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"sync"
	"time"
)

// Fetcher loads the list of supported currencies from the provider.
type Fetcher interface {
	FetchSymbols(ctx context.Context) (types.Symbols, error)
}

// Cache holds the latest supported-symbols snapshot. Snapshots are replaced
// whole and never modified, so callers may share them freely.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu        sync.RWMutex
	snapshot  types.Symbols
	fetchedAt time.Time
}

// NewCache creates a cache that serves a snapshot for ttl before fetching a
// new one. A ttl of zero fetches on every call.
func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SupportedSymbols returns a fresh enough snapshot, fetching one when needed.
// Concurrent callers share a single fetch. Fetch errors are returned as is; a
// stale snapshot is not served instead.
func (c *Cache) SupportedSymbols(ctx context.Context) (types.Symbols, error) {
	if symbols, ok := c.fresh(); ok {
		return symbols, nil
	}

	symbols, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

// Refresh replaces the snapshot with a newly fetched one.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.fetch(ctx)
	return err
}

// Start refreshes the snapshot every interval until ctx is done. A failed
// refresh keeps the previous snapshot.
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("failed to refresh supported symbols: %v", err)
			}

			select {
			case <-ctx.Done():
				log.Debug("symbols updater stopped")
				return
			case <-ticker.C:
			}
		}
	}()
	log.Infof("symbols updater started, refreshing every %s", interval)
}

func (c *Cache) fresh() (types.Symbols, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil || c.ttl <= 0 {
		return nil, false
	}
	if c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.snapshot, true
}

func (c *Cache) fetch(ctx context.Context) (types.Symbols, error) {
	v, err, shared := c.group.Do("symbols", func() (interface{}, error) {
		return c.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug("joined an in-flight symbols fetch")
	}
	return v.(types.Symbols), nil
}

func (c *Cache) load(ctx context.Context) (types.Symbols, error) {
	symbols, err := c.fetcher.FetchSymbols(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch supported symbols")
	}

	c.mu.Lock()
	previous := c.fetchedAt
	c.snapshot = symbols
	c.fetchedAt = c.now()
	c.mu.Unlock()

	if previous.IsZero() {
		log.Infof("loaded %s supported currencies", humanize.Comma(int64(len(symbols))))
	} else {
		log.Debugf("refreshed %s supported currencies, previous snapshot from %s",
			humanize.Comma(int64(len(symbols))), humanize.Time(previous))
	}
	return symbols, nil
}
