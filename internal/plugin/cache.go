package plugin

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/settings"
)

const (
	// MemcachedURLKey is the variable read by Memcached.
	MemcachedURLKey = "MEMCACHED_URL"
	// RedisURLKey is the variable read by Redis.
	RedisURLKey = "REDIS_URL"
	// CachesKey is the settings key the cache plugins write.
	CachesKey = "CACHES"

	// MemcachedBackend is the backend identifier for memcached caches.
	MemcachedBackend = "django.core.cache.backends.memcached.MemcachedCache"
	// RedisBackend is the backend identifier for redis caches.
	RedisBackend = "django_redis.cache.RedisCache"

	defaultMemcachedPort = 11211
	defaultCacheAlias    = "default"
)

// Memcached translates MEMCACHED_URL into the default cache.
func Memcached(env environ.Environment, s settings.Settings) error {
	raw, ok := env.Lookup(MemcachedURLKey)
	if !ok {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse memcached url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("parse memcached url: missing host in %q", raw)
	}
	port := defaultMemcachedPort
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return fmt.Errorf("parse memcached port: %w", err)
		}
	}

	s[CachesKey] = map[string]any{
		defaultCacheAlias: map[string]any{
			"BACKEND":  MemcachedBackend,
			"LOCATION": net.JoinHostPort(host, strconv.Itoa(port)),
		},
	}
	return nil
}

// Redis translates REDIS_URL into a cache entry. It takes the default alias
// unless an earlier plugin already configured one.
func Redis(env environ.Environment, s settings.Settings) error {
	raw, ok := env.Lookup(RedisURLKey)
	if !ok {
		return nil
	}

	opts, err := redis.ParseURL(raw)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}

	scheme := "redis"
	if opts.TLSConfig != nil {
		scheme = "rediss"
	}
	cache := map[string]any{
		"BACKEND":  RedisBackend,
		"LOCATION": fmt.Sprintf("%s://%s/%d", scheme, opts.Addr, opts.DB),
	}
	if opts.Password != "" {
		cache["OPTIONS"] = map[string]any{"PASSWORD": opts.Password}
	}

	caches, _ := s[CachesKey].(map[string]any)
	if caches == nil {
		caches = map[string]any{}
	}
	alias := defaultCacheAlias
	if existing, taken := caches[defaultCacheAlias].(map[string]any); taken && existing["BACKEND"] != RedisBackend {
		alias = "redis"
	}
	caches[alias] = cache
	s[CachesKey] = caches
	return nil
}
