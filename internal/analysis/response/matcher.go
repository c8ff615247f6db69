// Package response maps free text to canned persona replies. It is the
// local, I/O-free reply source every chat falls back to.
package response

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Category groups keyword triggers with the replies they unlock.
type Category struct {
	Name     string
	Keywords []string
	Replies  []string
}

// Matcher picks a reply from the first category whose keyword appears in
// the input. Category order is part of the contract: earlier categories
// shadow later ones.
type Matcher struct {
	mu         sync.Mutex
	rng        *rand.Rand
	categories []Category
	defaults   []string
}

// NewMatcher builds a matcher over an ordered category list. A nil rng uses
// a randomly seeded source; nil categories and defaults use the built-in
// Portuguese pools.
func NewMatcher(rng *rand.Rand, categories []Category, defaults []string) *Matcher {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if categories == nil {
		categories = DefaultCategories()
	}
	if len(defaults) == 0 {
		defaults = DefaultReplies()
	}

	normalized := make([]Category, 0, len(categories))
	for _, c := range categories {
		if len(c.Replies) == 0 {
			continue
		}
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		normalized = append(normalized, Category{Name: c.Name, Keywords: keywords, Replies: c.Replies})
	}

	return &Matcher{rng: rng, categories: normalized, defaults: defaults}
}

// Category returns the name of the category the input falls into.
func (m *Matcher) Category(input string) (string, bool) {
	c := m.lookup(input)
	if c == nil {
		return "", false
	}
	return c.Name, true
}

// Match returns a reply for the input. Empty input gets a default reply.
func (m *Matcher) Match(input string) string {
	pool := m.defaults
	if c := m.lookup(input); c != nil {
		pool = c.Replies
	}
	return m.pick(pool)
}

// IsDefault reports whether reply belongs to the default pool.
func (m *Matcher) IsDefault(reply string) bool {
	return contains(m.defaults, reply)
}

// InCategory reports whether reply belongs to the named category's pool.
func (m *Matcher) InCategory(name, reply string) bool {
	for _, c := range m.categories {
		if c.Name == name {
			return contains(c.Replies, reply)
		}
	}
	return false
}

func (m *Matcher) lookup(input string) *Category {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return nil
	}
	for i := range m.categories {
		for _, keyword := range m.categories[i].Keywords {
			if strings.Contains(normalized, keyword) {
				return &m.categories[i]
			}
		}
	}
	return nil
}

func (m *Matcher) pick(pool []string) string {
	m.mu.Lock()
	idx := m.rng.IntN(len(pool))
	m.mu.Unlock()
	return pool[idx]
}

func contains(pool []string, s string) bool {
	for _, p := range pool {
		if p == s {
			return true
		}
	}
	return false
}
