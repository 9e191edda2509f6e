// Package session pins schema resolution per dashboard session. A session
// resolves which schema variant and national baseline provenance the
// warehouse supports once, then reuses that answer until its TTL lapses, so
// every query a user issues within the window sees one coherent schema even
// while the warehouse gains or loses views underneath.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/monitoring"
	"github.com/chalkline-data/edufinance.report/internal/timeutil"
)

// Catalog is the warehouse surface the resolver needs.
type Catalog interface {
	HasRelation(name string) (bool, error)
}

// Resolution is a session's pinned view of the warehouse schema.
type Resolution struct {
	Variant    metrics.Variant    `json:"variant"`
	Provenance metrics.Provenance `json:"provenance"`
	ResolvedAt time.Time          `json:"resolved_at"`
}

// Source returns the query Source for the resolved variant.
func (r Resolution) Source() (metrics.Source, error) {
	return metrics.For(r.Variant)
}

// Store resolves and caches Resolutions per session ID. Sessions never share
// resolution state: each expires and re-resolves on its own clock.
type Store struct {
	catalog Catalog
	ttl     time.Duration
	clock   timeutil.Clock

	mu       sync.Mutex
	sessions map[string]Resolution
}

// NewStore builds a Store resolving against catalog. Resolutions live for
// ttl; a nil clock uses real time.
func NewStore(catalog Catalog, ttl time.Duration, clock timeutil.Clock) *Store {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Store{
		catalog:  catalog,
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]Resolution),
	}
}

// NewSession mints a session ID and resolves it immediately.
func (s *Store) NewSession() (string, Resolution, error) {
	id := uuid.NewString()
	res, err := s.Resolve(id)
	return id, res, err
}

// Resolve returns the session's pinned Resolution, consulting the catalog on
// first use and again once the TTL lapses. A catalog failure is returned as
// is and nothing is cached: there is no safe schema to assume, so the caller
// must treat it as a configuration error rather than fall back.
func (s *Store) Resolve(sessionID string) (Resolution, error) {
	s.mu.Lock()
	if res, ok := s.sessions[sessionID]; ok && s.clock.Since(res.ResolvedAt) < s.ttl {
		s.mu.Unlock()
		return res, nil
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	res, err := s.resolveFromCatalog()
	if err != nil {
		return Resolution{}, err
	}
	monitoring.Logf("session %s resolved variant=%s provenance=%s", sessionID, res.Variant, res.Provenance)

	s.mu.Lock()
	s.sessions[sessionID] = res
	s.mu.Unlock()

	return res, nil
}

// PurgeExpired drops sessions past their TTL and reports how many went.
// Resolve already refreshes expired entries lazily; this exists so an idle
// server's session map does not grow without bound.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, res := range s.sessions {
		if s.clock.Since(res.ResolvedAt) >= s.ttl {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) resolveFromCatalog() (Resolution, error) {
	curated, err := s.catalog.HasRelation(metrics.CuratedRelation)
	if err != nil {
		return Resolution{}, fmt.Errorf("catalog lookup for %s failed: %w", metrics.CuratedRelation, err)
	}
	variant := metrics.VariantRaw
	if curated {
		variant = metrics.VariantCurated
	}

	dedicated, err := s.catalog.HasRelation(metrics.NationalSummaryRelation)
	if err != nil {
		return Resolution{}, fmt.Errorf("catalog lookup for %s failed: %w", metrics.NationalSummaryRelation, err)
	}
	provenance := metrics.ProvenanceComputedAggregate
	if dedicated {
		provenance = metrics.ProvenanceDedicatedSummary
	}

	return Resolution{
		Variant:    variant,
		Provenance: provenance,
		ResolvedAt: s.clock.Now(),
	}, nil
}
