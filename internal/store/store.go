// Package store persists the resolution cache: registration numbers
// resolved on earlier runs, keyed by normalized company name, so re-runs
// and resumed runs skip redundant searches.
package store

import (
	"context"
	"time"

	"github.com/corpintel/dbd-cli/internal/model"
)

// Entry is one cached resolution. Entries are advisory: a missing or stale
// entry only costs a redundant search.
type Entry struct {
	Name           string
	KnownRegID     string
	RegistrationID string
	FoundName      string
	Match          model.MatchType
	Strategy       string
	UpdatedAt      time.Time
}

// FromResolution builds a cache entry from a resolution decision.
func FromResolution(r model.ResolutionResult) Entry {
	return Entry{
		Name:           r.Company.Name,
		KnownRegID:     r.Company.KnownRegID,
		RegistrationID: r.RegistrationID,
		FoundName:      r.FoundName,
		Match:          r.Match,
		Strategy:       r.Strategy,
	}
}

// ToResolution rebuilds a resolution decision for a cache hit.
func (e Entry) ToResolution(company model.CompanyInput) model.ResolutionResult {
	return model.ResolutionResult{
		Company:        company,
		RegistrationID: e.RegistrationID,
		FoundName:      e.FoundName,
		Match:          e.Match,
		Strategy:       e.Strategy,
	}
}

// CacheStore is the resolution cache. Put is confidence-sticky: an existing
// entry is only replaced by a strictly higher-confidence one, so an exact
// entry is never downgraded while an unresolved or low-confidence entry can
// be upgraded by a later run.
type CacheStore interface {
	// Get returns the cached entry for (name, knownRegID), or nil on miss.
	Get(ctx context.Context, name, knownRegID string) (*Entry, error)
	// Put inserts or conditionally upgrades an entry.
	Put(ctx context.Context, e Entry) error
	// List returns up to limit entries, most recently updated first.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Prune deletes entries last updated before cutoff and returns the
	// number removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}
