// Package cache wraps a formulary.Store with an in-memory LRU read
// cache. Gets hit the cache first; Put and Delete write through and
// invalidate, so readers never see stale entries from this process.
package cache
