package genome

import (
	"context"
	"fmt"
	"sync"
)

// CachedProvider wraps a SequenceProvider and remembers every region it has
// fetched. The design pipeline asks for the exon and three overlapping
// windows, and the donor stage may ask again for the same local window.
type CachedProvider struct {
	provider SequenceProvider

	mu      sync.Mutex
	regions map[string]string
}

// NewCachedProvider creates a caching wrapper around p.
func NewCachedProvider(p SequenceProvider) *CachedProvider {
	return &CachedProvider{
		provider: p,
		regions:  make(map[string]string),
	}
}

// FetchSequence returns the cached region or fetches it from the wrapped provider.
// Failed fetches are not cached.
func (c *CachedProvider) FetchSequence(ctx context.Context, chrom string, start, end int64) (string, error) {
	regionKey := fmt.Sprintf("%s:%d-%d", chrom, start, end)

	c.mu.Lock()
	seq, ok := c.regions[regionKey]
	c.mu.Unlock()
	if ok {
		return seq, nil
	}

	seq, err := c.provider.FetchSequence(ctx, chrom, start, end)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.regions[regionKey] = seq
	c.mu.Unlock()
	return seq, nil
}

// RegionCount returns the number of cached regions.
func (c *CachedProvider) RegionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.regions)
}
