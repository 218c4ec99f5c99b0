// Package dedupe provides message deduplication using a time-based cache,
// keeping message processing at-most-once when clients retry after a
// reconnect.
package dedupe
