package services

import (
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/desertthunder/tunemeld/internal/models"
)

// PlayCountCache memoises play count enrichment per ISRC with a bounded size and a fixed TTL.
type PlayCountCache struct {
	cache *ccache.Cache[models.PlayCount]
	ttl   time.Duration
}

// NewPlayCountCache creates a cache holding at most size entries, each valid for ttl.
func NewPlayCountCache(size int64, ttl time.Duration) *PlayCountCache {
	if size <= 0 {
		size = 1000
	}
	cfg := ccache.Configure[models.PlayCount]().MaxSize(size)
	return &PlayCountCache{cache: ccache.New(cfg), ttl: ttl}
}

// Lookup splits isrcs into cached entries and ISRCs that still need fetching. Expired entries count as missing.
func (p *PlayCountCache) Lookup(isrcs []string) (map[string]models.PlayCount, []string) {
	found := make(map[string]models.PlayCount, len(isrcs))
	var missing []string
	for _, isrc := range isrcs {
		item := p.cache.Get(isrc)
		if item == nil || item.Expired() {
			missing = append(missing, isrc)
			continue
		}
		found[isrc] = item.Value()
	}
	return found, missing
}

// Store caches counts keyed by ISRC.
func (p *PlayCountCache) Store(counts []models.PlayCount) {
	for _, pc := range counts {
		if pc.ISRC == "" {
			continue
		}
		p.cache.Set(pc.ISRC, pc, p.ttl)
	}
}

// Len returns the number of cached entries, expired ones included.
func (p *PlayCountCache) Len() int {
	return p.cache.ItemCount()
}

// Clear drops every entry.
func (p *PlayCountCache) Clear() {
	p.cache.Clear()
}

// Stop releases the cache's background worker.
func (p *PlayCountCache) Stop() {
	p.cache.Stop()
}
