package ground

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultCacheSize = 1024

// Chain grounds a name from the local map first, then the remote service,
// and falls back to a TEXT grounding. Resolved names are cached.
type Chain struct {
	local  *Map
	remote Grounder
	cache  *lru.Cache[string, Grounding]
	logger *zap.Logger
}

// NewChain builds a grounding chain. Either source may be nil.
func NewChain(local *Map, remote Grounder, cacheSize int, logger *zap.Logger) (*Chain, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, Grounding](cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{local: local, remote: remote, cache: cache, logger: logger}, nil
}

// Ground implements Grounder. Remote failures degrade to a TEXT grounding
// and are not cached.
func (c *Chain) Ground(ctx context.Context, text string) (Grounding, error) {
	text = strings.TrimSpace(text)
	if g, ok := c.cache.Get(text); ok {
		return g, nil
	}

	if g, ok := c.local.Lookup(text); ok {
		c.cache.Add(text, g)
		return g, nil
	}

	if c.remote != nil {
		g, err := c.remote.Ground(ctx, text)
		if err == nil {
			c.cache.Add(text, g)
			c.logger.Debug("grounded",
				zap.String("text", text),
				zap.String("key", g.Key()),
				zap.Float64("score", g.Score))
			return g, nil
		}
		if ctx.Err() != nil {
			return Grounding{}, ctx.Err()
		}
		c.logger.Warn("remote grounding failed, using text",
			zap.String("text", text), zap.Error(err))
		return Text(text), nil
	}

	g := Text(text)
	c.cache.Add(text, g)
	return g, nil
}
