package listing

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StateCache keeps the View of each list per browser session, so a filter
// change seen on one request resets paging for the next.
type StateCache struct {
	views *lru.Cache[string, View]
}

func NewStateCache(size int) (*StateCache, error) {
	if size < 1 {
		size = 1
	}
	views, err := lru.New[string, View](size)
	if err != nil {
		return nil, err
	}
	return &StateCache{views: views}, nil
}

func cacheKey(sessionID, list string) string {
	return sessionID + "\x00" + list
}

// Load returns the stored view or defaults when none is cached.
func (c *StateCache) Load(sessionID, list string, defaults View) View {
	if c == nil || sessionID == "" {
		return defaults.Clone()
	}
	if v, ok := c.views.Get(cacheKey(sessionID, list)); ok {
		return v.Clone()
	}
	return defaults.Clone()
}

func (c *StateCache) Store(sessionID, list string, v View) {
	if c == nil || sessionID == "" {
		return
	}
	c.views.Add(cacheKey(sessionID, list), v.Clone())
}

// Forget drops every list view of a session.
func (c *StateCache) Forget(sessionID string) {
	if c == nil || sessionID == "" {
		return
	}
	prefix := sessionID + "\x00"
	for _, key := range c.views.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.views.Remove(key)
		}
	}
}

func (c *StateCache) Len() int {
	if c == nil {
		return 0
	}
	return c.views.Len()
}
