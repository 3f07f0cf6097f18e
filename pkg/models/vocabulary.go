package models

import (
	"sort"
	"time"
)

// Structure is the discovered three-level vault hierarchy:
// domain -> category group -> sorted subcategory folder names.
type Structure map[string]map[string][]string

// Domains returns the structure's domain names, sorted.
func (s Structure) Domains() []string {
	domains := make([]string, 0, len(s))
	for d := range s {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// SubcategoriesFor returns the deduplicated, sorted subcategories known for
// a domain across all of its category groups.
func (s Structure) SubcategoriesFor(domain string) []string {
	groups, ok := s[domain]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var subs []string
	for _, list := range groups {
		for _, sub := range list {
			if !seen[sub] {
				seen[sub] = true
				subs = append(subs, sub)
			}
		}
	}
	sort.Strings(subs)
	return subs
}

// Vocabulary holds the flattened vocabulary lists derived from a Structure,
// used to constrain and validate model output.
type Vocabulary struct {
	Domains        []string
	CategoryGroups []string
	Subcategories  []string
}

// Flatten derives the Vocabulary from a Structure. All lists are
// deduplicated and sorted for deterministic prompts.
func (s Structure) Flatten() Vocabulary {
	domainSet := make(map[string]bool)
	groupSet := make(map[string]bool)
	subSet := make(map[string]bool)

	for domain, groups := range s {
		domainSet[domain] = true
		for group, subs := range groups {
			groupSet[group] = true
			for _, sub := range subs {
				subSet[sub] = true
			}
		}
	}

	return Vocabulary{
		Domains:        sortedKeys(domainSet),
		CategoryGroups: sortedKeys(groupSet),
		Subcategories:  sortedKeys(subSet),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CacheVersion is the current on-disk structure cache format version.
const CacheVersion = 1

// StructureCache is the on-disk JSON document caching a scanned structure.
// Readers treat any structural anomaly (missing timestamp or structure,
// unparseable JSON) as a cache miss, never an error.
type StructureCache struct {
	Structure Structure `json:"structure"`
	CachedAt  time.Time `json:"cached_at"`
	TTLHours  int       `json:"ttl_hours"`
	Version   int       `json:"version"`
}
