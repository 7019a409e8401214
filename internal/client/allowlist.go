package client

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gobwas/glob"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

// AllowList governs client-class resolution (spec §4.7): a list of glob
// patterns of permissible client-class identifiers, plus an unsafe
// bypass. Patterns are compiled once by NewAllowList; the optional LRU
// cache holds each client-class's match result, since the same classes
// recur across the proxies of a driver report.
type AllowList struct {
	patterns []glob.Glob
	raw      []string
	unsafe   bool
	cache    *lru.Cache[string, bool]
}

// NewAllowList compiles patterns (standard glob syntax: "*", "?", "[...]")
// into an AllowList. unsafe bypasses matching entirely, allowing every
// client-class — the explicit opt-in spec §4.7 describes for trusted
// local use. cacheSize bounds the compiled-match-result cache; pass 0 to
// skip caching.
func NewAllowList(patterns []string, unsafe bool, cacheSize int) (*AllowList, error) {
	a := &AllowList{raw: patterns, unsafe: unsafe}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.InvalidArgument, "compile allow-list pattern "+p, err)
		}
		a.patterns = append(a.patterns, g)
	}
	if cacheSize > 0 {
		c, err := lru.New[string, bool](cacheSize)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.Internal, "create allow-list cache", err)
		}
		a.cache = c
	}
	return a, nil
}

// Allowed reports whether clientClass may be proxied, per spec §4.7: any
// class not matched by the allow-list (and not covered by the unsafe
// bypass) is refused.
func (a *AllowList) Allowed(clientClass string) bool {
	if a.unsafe {
		return true
	}
	if a.cache != nil {
		if v, ok := a.cache.Get(clientClass); ok {
			return v
		}
	}
	allowed := false
	for _, g := range a.patterns {
		if g.Match(clientClass) {
			allowed = true
			break
		}
	}
	if a.cache != nil {
		a.cache.Add(clientClass, allowed)
	}
	return allowed
}
