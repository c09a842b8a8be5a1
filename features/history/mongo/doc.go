// Package mongo registers MongoDB-backed history storage for A2UI sessions.
// Use clients/mongo to build the low-level client and pass it to NewStore to
// obtain a history.Store that persists chat turns and their A2UI messages
// per session.
package mongo
