package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"meal-planner-agent/internal/shared"
)

type cacheEntry struct {
	Content string            `json:"content"`
	Usage   shared.TokenUsage `json:"usage"`
}

// CachedTextGenerator wraps a TextGenerator to cache responses to a file,
// so a session can be replayed without calling the model again.
type CachedTextGenerator struct {
	realGen       TextGenerator
	namespace     string
	cache         map[string]cacheEntry
	cacheFilePath string
	hits, misses  int
	mu            sync.Mutex
}

// NewCachedTextGenerator creates a new CachedTextGenerator. Entries are
// keyed by namespace and prompt, so switching models does not replay
// another model's answers. An existing cache file is loaded.
func NewCachedTextGenerator(realGen TextGenerator, cacheFilePath, namespace string) (*CachedTextGenerator, error) {
	c := &CachedTextGenerator{
		realGen:       realGen,
		namespace:     namespace,
		cache:         make(map[string]cacheEntry),
		cacheFilePath: cacheFilePath,
	}

	// Ensure the directory for the cache file exists
	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("llm cache: %s not found, starting empty", cacheFilePath)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	log.Printf("llm cache: loaded %d responses from %s", len(c.cache), cacheFilePath)
	return c, nil
}

type refreshKey struct{}

// WithRefresh marks ctx so that cached generators skip their lookup and
// overwrite the entry with a fresh response. Retries use it so that a
// cached unusable reply is not replayed.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

func refreshing(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

func (c *CachedTextGenerator) key(prompt string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

// GenerateContent checks the cache first. On a miss it calls the real
// generator and stores a successful response. Failures are not cached.
// A ctx from WithRefresh always misses.
func (c *CachedTextGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	k := c.key(prompt)

	c.mu.Lock()
	entry, ok := c.cache[k]
	if refreshing(ctx) {
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if ok {
		return ContentResponse{Content: entry.Content, Usage: entry.Usage}, nil
	}

	resp, err := c.realGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ContentResponse{}, err
	}

	c.mu.Lock()
	c.cache[k] = cacheEntry{Content: resp.Content, Usage: resp.Usage}
	c.mu.Unlock()

	return resp, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedTextGenerator) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedTextGenerator) SaveCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	log.Printf("llm cache: saved %d responses to %s", len(c.cache), c.cacheFilePath)
	return nil
}

// Close saves the cache.
func (c *CachedTextGenerator) Close() error {
	return c.SaveCache()
}
