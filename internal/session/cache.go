package session

import (
	"fmt"

	"github.com/KaramelBytes/docassist/internal/analysis"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Cache holds analysis reports keyed by file id, bounded by LRU eviction.
type Cache struct {
	lru *lru.Cache
}

// NewCache creates a cache holding at most size reports.
func NewCache(size int, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := lru.NewWithEvict(size, func(key, _ interface{}) {
		logger.Debug("analysis dropped from cache", zap.Any("file_id", key))
	})
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Put stores rep for fileID, replacing any previous report.
func (c *Cache) Put(fileID string, rep *analysis.Report) {
	c.lru.Add(fileID, rep)
}

// Get returns the cached report and marks it recently used.
func (c *Cache) Get(fileID string) (*analysis.Report, bool) {
	v, ok := c.lru.Get(fileID)
	if !ok {
		return nil, false
	}
	return v.(*analysis.Report), true
}

// Remove evicts the report for fileID if present.
func (c *Cache) Remove(fileID string) {
	c.lru.Remove(fileID)
}

// Len returns the number of cached reports.
func (c *Cache) Len() int { return c.lru.Len() }

// Latest returns the most recently stored or read report.
func (c *Cache) Latest() (*analysis.Report, bool) {
	keys := c.lru.Keys()
	if len(keys) == 0 {
		return nil, false
	}
	v, ok := c.lru.Peek(keys[len(keys)-1])
	if !ok {
		return nil, false
	}
	return v.(*analysis.Report), true
}

// Reports returns cached reports from least to most recently used without
// changing their recency.
func (c *Cache) Reports() []*analysis.Report {
	keys := c.lru.Keys()
	out := make([]*analysis.Report, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.lru.Peek(k); ok {
			out = append(out, v.(*analysis.Report))
		}
	}
	return out
}
