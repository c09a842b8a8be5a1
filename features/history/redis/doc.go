// Package redis registers Redis-backed history storage for A2UI sessions.
// The store keeps a bounded, expiring window of recent turns per session,
// which suits ephemeral chat deployments and serves as a hot store in front
// of the durable Mongo backend. Use clients/redis to build the low-level
// client and pass it to NewStore to obtain a history.Store.
package redis
