// Package search provides local fuzzy search over cached clubs and posts.
package search

import (
	"sort"
	"strings"
	"sync"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/reelclub/reelclub/internal/domain"
)

// Kind tags what an index entry refers to.
type Kind string

const (
	KindClub Kind = "club"
	KindPost Kind = "post"
)

// Entry is one searchable item.
type Entry struct {
	Kind  Kind
	ID    int
	Title string
}

// Result is a match with metadata for highlighting.
type Result struct {
	Entry
	Score          int
	MatchedIndexes []int
}

// source adapts the index to sahilm/fuzzy.Source for allocation-free
// matching over pre-lowered titles.
type source struct {
	titles []string
}

func (s *source) String(i int) string { return s.titles[i] }
func (s *source) Len() int            { return len(s.titles) }

// Index holds the searchable entries. Fetches feed it; logout clears it.
type Index struct {
	mu          sync.RWMutex
	entries     []Entry
	lowerTitles []string
	seen        map[Kind]map[int]int // kind -> id -> entry position
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{seen: map[Kind]map[int]int{KindClub: {}, KindPost: {}}}
}

// IndexClubs adds or refreshes club entries.
func (ix *Index) IndexClubs(clubs []domain.Club) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, c := range clubs {
		ix.put(Entry{Kind: KindClub, ID: c.ID, Title: c.Name})
	}
}

// IndexPosts adds or refreshes post entries, keyed by movie title.
func (ix *Index) IndexPosts(posts []domain.Post) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, p := range posts {
		ix.put(Entry{Kind: KindPost, ID: p.ID, Title: p.MovieTitle})
	}
}

// put upserts an entry. Caller holds mu.
func (ix *Index) put(e Entry) {
	byID := ix.seen[e.Kind]
	if pos, ok := byID[e.ID]; ok {
		ix.entries[pos] = e
		ix.lowerTitles[pos] = strings.ToLower(e.Title)
		return
	}
	byID[e.ID] = len(ix.entries)
	ix.entries = append(ix.entries, e)
	ix.lowerTitles = append(ix.lowerTitles, strings.ToLower(e.Title))
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = nil
	ix.lowerTitles = nil
	ix.seen = map[Kind]map[int]int{KindClub: {}, KindPost: {}}
}

// Len reports how many entries are indexed.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns entries matching query, best first. Subsequence matching
// with positional scoring does the ranking; a normalized-fold pass catches
// queries the stricter matcher misses (accents, folded case).
func (ix *Index) Search(query string) []Result {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := fuzzy.FindFrom(query, &source{titles: ix.lowerTitles})
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Entry:          ix.entries[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	if len(results) > 0 {
		return results
	}

	// fallback: normalized fold over the raw titles
	ranks := make([]lfuzzy.Rank, 0)
	for i, e := range ix.entries {
		if rank := lfuzzy.RankMatchNormalizedFold(query, e.Title); rank >= 0 {
			ranks = append(ranks, lfuzzy.Rank{Target: e.Title, Distance: rank, OriginalIndex: i})
		}
	}
	sort.Slice(ranks, func(a, b int) bool { return ranks[a].Distance < ranks[b].Distance })
	for _, r := range ranks {
		results = append(results, Result{Entry: ix.entries[r.OriginalIndex], Score: -r.Distance})
	}
	return results
}
