package domain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/models"
)

// Decision classifies a candidate record against the existing graph.
type Decision string

const (
	DecisionNew   Decision = "NEW"
	DecisionMatch Decision = "MATCH"
)

// Candidate is an externally-sourced record awaiting classification.
type Candidate struct {
	Type             models.EntityType
	Name             string
	CelebrityID      uuid.UUID
	ExternalPlatform string
	ExternalRef      string
}

// Resolution is the outcome of classifying one candidate.
type Resolution struct {
	Decision       Decision
	EntityID       uuid.UUID
	NormalizedName string
}

// ScopeIndex is an in-memory snapshot of one celebrity's entities, keyed
// the two ways the resolver matches: external ref and normalized name.
// The orchestrator loads it once per run; entities persisted mid-run are
// added back so later records in the same page match them.
type ScopeIndex struct {
	celebrityID   uuid.UUID
	byExternalRef map[string]uuid.UUID
	byName        map[string]uuid.UUID
}

// NewScopeIndex creates an empty index for one celebrity scope.
func NewScopeIndex(celebrityID uuid.UUID) *ScopeIndex {
	return &ScopeIndex{
		celebrityID:   celebrityID,
		byExternalRef: make(map[string]uuid.UUID),
		byName:        make(map[string]uuid.UUID),
	}
}

// CelebrityID returns the scope this index covers.
func (s *ScopeIndex) CelebrityID() uuid.UUID {
	return s.celebrityID
}

// AddEpisode indexes an existing episode.
func (s *ScopeIndex) AddEpisode(ep *models.Episode) {
	if ep.ExternalRef != "" {
		s.byExternalRef[refKey(ep.ExternalPlatform, ep.ExternalRef)] = ep.ID
	}
	name := ep.NormalizedTitle
	if name == "" {
		name = Normalize(ep.Title)
	}
	s.byName[nameKey(models.EntityTypeEpisode, name)] = ep.ID
}

// AddLocation indexes an existing location.
func (s *ScopeIndex) AddLocation(loc *models.Location) {
	name := loc.NormalizedName
	if name == "" {
		name = Normalize(loc.Name)
	}
	s.byName[nameKey(models.EntityTypeLocation, name)] = loc.ID
}

// AddItem indexes an existing item.
func (s *ScopeIndex) AddItem(item *models.Item) {
	name := item.NormalizedName
	if name == "" {
		name = Normalize(item.Name)
	}
	s.byName[nameKey(models.EntityTypeItem, name)] = item.ID
}

// Add indexes an arbitrary entity by its resolver keys. Used by the
// orchestrator after persisting a NEW entity mid-run.
func (s *ScopeIndex) Add(entityType models.EntityType, id uuid.UUID, normalizedName, platform, externalRef string) {
	if externalRef != "" {
		s.byExternalRef[refKey(platform, externalRef)] = id
	}
	if normalizedName != "" {
		s.byName[nameKey(entityType, normalizedName)] = id
	}
}

// Resolve classifies a candidate against the scope. Pure: no side
// effects, no I/O. Matching order is external ref first (the strongest
// signal), then normalized name, then NEW.
func Resolve(scope *ScopeIndex, c Candidate) (Resolution, error) {
	if c.CelebrityID == uuid.Nil {
		return Resolution{}, errors.ScopeMissing("candidate has no celebrity scope")
	}
	if scope == nil || scope.celebrityID != c.CelebrityID {
		return Resolution{}, errors.ScopeMissing(
			fmt.Sprintf("scope index does not cover celebrity %s", c.CelebrityID))
	}

	normalized := Normalize(c.Name)

	if c.ExternalRef != "" {
		if id, ok := scope.byExternalRef[refKey(c.ExternalPlatform, c.ExternalRef)]; ok {
			return Resolution{Decision: DecisionMatch, EntityID: id, NormalizedName: normalized}, nil
		}
	}

	if id, ok := scope.byName[nameKey(c.Type, normalized)]; ok {
		return Resolution{Decision: DecisionMatch, EntityID: id, NormalizedName: normalized}, nil
	}

	return Resolution{Decision: DecisionNew, NormalizedName: normalized}, nil
}

func refKey(platform, ref string) string {
	return platform + "|" + ref
}

func nameKey(entityType models.EntityType, name string) string {
	return string(entityType) + "|" + name
}
