package catalog

import (
	"errors"
	"strings"
	"sync/atomic"

	"coin-radar/internal/domain"
)

// ErrNotReady is returned while the first catalog build has not completed.
var ErrNotReady = errors.New("currency catalog not ready")

// DefaultExclusions are currency names known to cause false positives even
// though they are not dictionary words. Extendable via config.
var DefaultExclusions = []string{"Crypto", "ICOS", "Naviaddress", "B2BX"}

// Lookup answers whether a currency name is an ordinary dictionary word.
type Lookup interface {
	Contains(word string) bool
}

// Catalog is the filtered, ordered set of currencies used for matching.
// Immutable once built; ordering follows the upstream listing because it
// decides tie-breaking during ranking.
type Catalog struct {
	currencies []domain.Currency
	bySlug     map[string]domain.Currency
}

// Build filters a raw provider listing into a Catalog. A currency is dropped
// when its name is a dictionary word, appears in the exclusion set, or reuses
// a slug already taken by an earlier entry. The filter is stable: surviving
// entries keep their listing order.
func Build(listing []domain.Currency, lex Lookup, exclusions []string) *Catalog {
	excluded := make(map[string]struct{}, len(exclusions))
	for _, name := range exclusions {
		excluded[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	c := &Catalog{
		currencies: make([]domain.Currency, 0, len(listing)),
		bySlug:     make(map[string]domain.Currency, len(listing)),
	}
	for _, cur := range listing {
		if cur.Slug == "" || cur.Name == "" {
			continue
		}
		if _, taken := c.bySlug[cur.Slug]; taken {
			continue
		}
		if lex != nil && lex.Contains(cur.Name) {
			continue
		}
		if _, ok := excluded[strings.ToLower(cur.Name)]; ok {
			continue
		}
		c.currencies = append(c.currencies, cur)
		c.bySlug[cur.Slug] = cur
	}
	return c
}

// Currencies returns the catalog entries in listing order. Callers must not
// mutate the returned slice.
func (c *Catalog) Currencies() []domain.Currency {
	return c.currencies
}

// BySlug looks a currency up by its slug.
func (c *Catalog) BySlug(slug string) (domain.Currency, bool) {
	cur, ok := c.bySlug[slug]
	return cur, ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.currencies)
}

// Holder publishes the current catalog to concurrent readers. Requests that
// arrive before the first successful build observe ErrNotReady rather than a
// partially built catalog.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns an empty holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Set swaps in a freshly built catalog.
func (h *Holder) Set(c *Catalog) {
	h.current.Store(c)
}

// Get returns the current catalog, or ErrNotReady before the first Set.
func (h *Holder) Get() (*Catalog, error) {
	c := h.current.Load()
	if c == nil {
		return nil, ErrNotReady
	}
	return c, nil
}

// Ready reports whether a catalog has been published.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}
