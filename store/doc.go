// Package store persists cache entries keyed by fingerprint digest.
//
// It provides the Store interface with in-memory and Redis implementations.
// Beyond plain key lookup, stores answer ordered queries over the entry path
// field, which the cache gateway uses for exact and prefix invalidation.
package store
