package pipeline

import (
	"strings"
	"sync"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/scentlab/accord/internal/knowledge"
)

// ScoreFunc scores how well a formula label matches a candidate name,
// 0..100. Higher is better.
type ScoreFunc func(label, candidate string) int

func defaultScore(label, candidate string) int {
	return fuzzy.WRatio(label, candidate)
}

// Matcher resolves free-text formula labels to knowledge base entries by
// fuzzy matching against entry names and aliases. Lookups are memoized,
// including misses, so batch runs pay the scoring cost once per label.
type Matcher struct {
	base      *knowledge.Base
	threshold int
	score     ScoreFunc

	mu   sync.Mutex
	memo map[string]*knowledge.Entry
}

func NewMatcher(base *knowledge.Base, threshold int) *Matcher {
	return &Matcher{
		base:      base,
		threshold: threshold,
		score:     defaultScore,
		memo:      make(map[string]*knowledge.Entry),
	}
}

// Match returns the best-scoring entry for label, or false when no entry
// reaches the threshold. Matching is case- and diacritic-insensitive.
func (m *Matcher) Match(label string) (*knowledge.Entry, bool) {
	key := canonicalLabel(label)

	m.mu.Lock()
	entry, seen := m.memo[key]
	m.mu.Unlock()
	if seen {
		return entry, entry != nil
	}

	entry = m.lookup(key)

	m.mu.Lock()
	m.memo[key] = entry
	m.mu.Unlock()
	return entry, entry != nil
}

func (m *Matcher) lookup(label string) *knowledge.Entry {
	entries := m.base.Entries()
	var best *knowledge.Entry
	bestScore := 0
	for i := range entries {
		e := &entries[i]
		score := m.score(label, canonicalLabel(e.Name))
		for _, alias := range e.Aliases {
			if s := m.score(label, canonicalLabel(alias)); s > score {
				score = s
			}
		}
		if score > bestScore {
			bestScore = score
			best = e
		}
	}
	if bestScore < m.threshold {
		return nil
	}
	return best
}

// canonicalLabel lowercases, collapses whitespace, and strips combining
// diacritical marks so "Néroli" and "neroli" compare equal.
func canonicalLabel(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return s
}
