// Package vault discovers the PARA vault's three-level folder structure and
// writes classified notes into it.
package vault

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// DefaultTTLHours is the default structure cache time-to-live.
const DefaultTTLHours = 6

// Scanner discovers the vault structure (domain -> category group ->
// subcategory) and exposes the classification vocabulary derived from it.
// The structure is read-only to the classification core; it changes only
// when the cache expires or a rescan is forced.
type Scanner interface {
	// Scan walks the vault and returns a fresh structure, bypassing and
	// not touching the cache.
	Scan() (models.Structure, error)
	// GetStructure returns the structure, serving from a valid cache and
	// rescanning (then recaching) on miss. forceRefresh bypasses the cache.
	GetStructure(forceRefresh bool) (models.Structure, error)
	// Vocabulary derives the flattened vocabulary lists from GetStructure.
	Vocabulary() (models.Vocabulary, error)
	// Rescan forces a fresh walk and updates the cache.
	Rescan() (models.Structure, error)
}

type fileScanner struct {
	vaultPath string
	cachePath string
	ttlHours  int
	events    observability.EventLog // may be nil

	// now is injected for TTL boundary tests.
	now func() time.Time
}

// NewScanner creates a Scanner for the vault at vaultPath, caching scan
// results as JSON at cachePath with the given TTL. events may be nil.
func NewScanner(vaultPath, cachePath string, ttlHours int, events observability.EventLog) Scanner {
	if ttlHours <= 0 {
		ttlHours = DefaultTTLHours
	}
	return &fileScanner{
		vaultPath: vaultPath,
		cachePath: cachePath,
		ttlHours:  ttlHours,
		events:    events,
		now:       time.Now,
	}
}

// Scan walks exactly three directory levels below the vault root. Hidden
// entries and symlinks are skipped; permission errors on a subtree are
// recorded and treated as no entries.
func (s *fileScanner) Scan() (models.Structure, error) {
	info, err := os.Stat(s.vaultPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("vault path does not exist: %s", s.vaultPath)
	}

	structure := models.Structure{}

	for _, domain := range s.listDirs(s.vaultPath) {
		structure[domain] = map[string][]string{}

		domainPath := filepath.Join(s.vaultPath, domain)
		for _, group := range s.listDirs(domainPath) {
			subs := s.listDirs(filepath.Join(domainPath, group))
			sort.Strings(subs)
			structure[domain][group] = subs
		}
	}

	return structure, nil
}

// listDirs returns the non-hidden, non-symlink directory names directly
// under path. Unreadable directories yield no entries.
func (s *fileScanner) listDirs(path string) []string {
	entries, err := os.ReadDir(path)
	if err != nil {
		s.warn("vault.scan_skipped", fmt.Sprintf("cannot read %s: %v", path, err))
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if !entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

func (s *fileScanner) GetStructure(forceRefresh bool) (models.Structure, error) {
	if !forceRefresh {
		if cached := s.loadCache(); cached != nil {
			return cached, nil
		}
	}

	structure, err := s.Scan()
	if err != nil {
		return nil, err
	}
	s.saveCache(structure)
	return structure, nil
}

func (s *fileScanner) Rescan() (models.Structure, error) {
	return s.GetStructure(true)
}

func (s *fileScanner) Vocabulary() (models.Vocabulary, error) {
	structure, err := s.GetStructure(false)
	if err != nil {
		return models.Vocabulary{}, err
	}
	return structure.Flatten(), nil
}

// loadCache returns the cached structure, or nil on any miss: absent file,
// unparseable JSON, missing timestamp or structure, or expiry. A cache whose
// age equals the TTL exactly is expired.
func (s *fileScanner) loadCache() models.Structure {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil
	}

	var cache models.StructureCache
	if err := json.Unmarshal(data, &cache); err != nil {
		s.warn("vault.cache_invalid", fmt.Sprintf("cache corrupted: %v", err))
		return nil
	}
	if cache.CachedAt.IsZero() || cache.Structure == nil {
		s.warn("vault.cache_invalid", "cache missing required fields")
		return nil
	}

	ttlHours := cache.TTLHours
	if ttlHours <= 0 {
		ttlHours = s.ttlHours
	}
	expiresAt := cache.CachedAt.Add(time.Duration(ttlHours) * time.Hour)
	if !s.now().Before(expiresAt) {
		return nil
	}

	return cache.Structure
}

// saveCache persists the structure atomically: a full write into a temp file
// in the cache directory followed by a single rename, so a concurrent reader
// never observes a partial document. Failures are recorded, not returned;
// the cache is an optimization.
func (s *fileScanner) saveCache(structure models.Structure) {
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		s.warn("vault.cache_write_failed", err.Error())
		return
	}

	cache := models.StructureCache{
		Structure: structure,
		CachedAt:  s.now(),
		TTLHours:  s.ttlHours,
		Version:   models.CacheVersion,
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		s.warn("vault.cache_write_failed", err.Error())
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.cachePath), "vault_cache-*.json")
	if err != nil {
		s.warn("vault.cache_write_failed", err.Error())
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.warn("vault.cache_write_failed", err.Error())
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.warn("vault.cache_write_failed", err.Error())
		return
	}
	if err := os.Rename(tmpName, s.cachePath); err != nil {
		os.Remove(tmpName)
		s.warn("vault.cache_write_failed", err.Error())
	}
}

func (s *fileScanner) warn(eventType, msg string) {
	if s.events == nil {
		return
	}
	_ = s.events.Write(observability.Event{
		Time:    s.now(),
		Level:   "WARN",
		Type:    eventType,
		Message: msg,
	})
}
