// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about searches, verifications, cache operations and served
// HTTP requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the solver packages never
// import a metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSearchHooks(metrics.NewSearchHooks(reg))
//	    observability.SetCacheHooks(metrics.NewCacheHooks(reg))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Search().OnSearchStart(ctx, name, strategy, n)
//	// ... search ...
//	observability.Search().OnSearchComplete(ctx, name, strategy, nodes, backtracks, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Search Hooks
// =============================================================================

// SearchHooks receives events from assignment searches.
type SearchHooks interface {
	OnSearchStart(ctx context.Context, instance, strategy string, communities int)
	OnSearchComplete(ctx context.Context, instance, strategy string, nodes, backtracks int, duration time.Duration, err error)
}

// =============================================================================
// Verify Hooks
// =============================================================================

// VerifyHooks receives events from solution verification.
type VerifyHooks interface {
	OnVerifyStart(ctx context.Context, instance string)

	// OnVerifyComplete reports the first failed check, or "" for a solution
	// that verified.
	OnVerifyComplete(ctx context.Context, instance, failed string, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records a served request. Route is the matched pattern, not
	// the raw path.
	OnRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSearchHooks is a no-op implementation of SearchHooks.
type NoopSearchHooks struct{}

func (NoopSearchHooks) OnSearchStart(context.Context, string, string, int) {}
func (NoopSearchHooks) OnSearchComplete(context.Context, string, string, int, int, time.Duration, error) {
}

// NoopVerifyHooks is a no-op implementation of VerifyHooks.
type NoopVerifyHooks struct{}

func (NoopVerifyHooks) OnVerifyStart(context.Context, string)                              {}
func (NoopVerifyHooks) OnVerifyComplete(context.Context, string, string, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	searchHooks SearchHooks = NoopSearchHooks{}
	verifyHooks VerifyHooks = NoopVerifyHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetSearchHooks registers custom search hooks.
// This should be called once at application startup before any search runs.
func SetSearchHooks(h SearchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		searchHooks = h
	}
}

// SetVerifyHooks registers custom verify hooks.
func SetVerifyHooks(h VerifyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		verifyHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Search returns the registered search hooks.
func Search() SearchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return searchHooks
}

// Verify returns the registered verify hooks.
func Verify() VerifyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return verifyHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	searchHooks = NoopSearchHooks{}
	verifyHooks = NoopVerifyHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
