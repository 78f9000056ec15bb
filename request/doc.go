// Package request carries per-request state between the embedding server
// and the cache: route segments, the cache-bypass signal, the resolved
// locale, and the outgoing content type.
package request
