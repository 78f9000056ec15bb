// Package identity models the current caller for cache partitioning.
//
// The cache only needs a stable principal (or "no caller") per request.
// Identities travel on the request context; a JWT resolver is provided for
// servers that establish identity from bearer tokens.
package identity
