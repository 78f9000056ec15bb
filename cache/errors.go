package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrUncacheable signals that no cache key can be derived for this
	// invocation. The gateway treats it as "run the handler uncached";
	// it never surfaces to the end caller.
	ErrUncacheable = errors.New("cache: invocation is uncacheable")

	// ErrDuplicateArgument indicates an evaluated parameter was supplied
	// both positionally and by keyword. This is a configuration error and
	// is surfaced to the caller instead of being swallowed.
	ErrDuplicateArgument = errors.New("cache: duplicate argument")

	// ErrReservedArgName indicates an evaluated parameter name collides
	// with the reserved underscore-prefixed key dimensions.
	ErrReservedArgName = errors.New("cache: evaluated argument name is reserved")

	// ErrNilStore indicates the gateway was constructed without a store.
	ErrNilStore = errors.New("cache: store is nil")

	// ErrNoRoutes indicates a handler was wrapped without cacheable routes.
	ErrNoRoutes = errors.New("cache: no cacheable routes")

	// ErrInvalidRoute indicates a cacheable route without a leading separator.
	ErrInvalidRoute = errors.New("cache: route must start with /")

	// ErrInvalidPrefix indicates a flush prefix without a leading separator.
	ErrInvalidPrefix = errors.New("cache: flush prefix must start with /")
)
