// Package cache provides snapshot caches for the shellprefs Manager.
package cache

import "github.com/CreativeUnicorns/shellprefs"

var (
	_ shellprefs.Cache = (*MemoryCache)(nil)
	_ shellprefs.Cache = (*RedisCache)(nil)
)
