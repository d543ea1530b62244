// Package hints produces parameter-name hints for PHP documents.
package hints

import (
	"strconv"

	"golang.org/x/sync/singleflight"

	phphints "github.com/php-hints/phphints"
	"github.com/php-hints/phphints/cache"
)

// Groups hands out the call groups of a document, parsing only when the
// cached entry was built from different text.
type Groups struct {
	cache *cache.Cache
	parse func([]byte) []phphints.CallGroup
	calls singleflight.Group
}

// NewGroups returns a facade over c.
func NewGroups(c *cache.Cache) *Groups {
	return &Groups{cache: c, parse: phphints.Parse}
}

// Get returns the call groups of text, a copy the caller may modify.
// Concurrent calls for the same document version share one parse.
func (g *Groups) Get(id, text string) []phphints.CallGroup {
	if g.cache.IsValid(id, text) {
		return g.cache.Get(id)
	}

	key := id + "\x00" + strconv.FormatUint(cache.Fingerprint(text), 16)

	v, _, _ := g.calls.Do(key, func() (any, error) {
		groups := g.parse([]byte(text))
		g.cache.Set(id, text, groups)

		return groups, nil
	})

	groups, _ := v.([]phphints.CallGroup)

	return phphints.CloneGroups(groups)
}

// Forget drops the cached groups of a document.
func (g *Groups) Forget(id string) {
	g.cache.Delete(id)
}
