package dispatch

import (
	"time"

	"leadwatch/store"
	"leadwatch/store/cache"
)

const (
	projectChatCacheTTL   = 60 * time.Second
	tariffStatusCacheTTL  = 600 * time.Second
	projectChatCacheSize  = 2048
	tariffStatusCacheSize = 4096
)

// chatLookup is the per-chat context the processor needs on every event:
// the owning project and its owning user, resolved once and cached since
// both change far less often than messages arrive.
type chatLookup struct {
	project *store.Project
	user    *store.User
	chat    *store.MonitoredChat
}

// caches holds the processor's two TTL caches (spec.md §4.3): one for
// project/chat/user resolution, one for tariff gate decisions. Both are
// cleared together by ClearCaches, which the monitor's maintenance loop
// invokes every reload cycle.
type caches struct {
	lookups *cache.LRUCache[int64, *chatLookup] // keyed by chat id
	tariffs *cache.LRUCache[int64, bool]        // keyed by user id -> tariff active
}

func newCaches() *caches {
	return &caches{
		lookups: cache.New[int64, *chatLookup](projectChatCacheSize, projectChatCacheTTL),
		tariffs: cache.New[int64, bool](tariffStatusCacheSize, tariffStatusCacheTTL),
	}
}

func (c *caches) clear() {
	c.lookups.Clear()
	c.tariffs.Clear()
}
