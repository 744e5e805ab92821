package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/pkg/models"
)

// EpisodeCreatedEvent is published when ingestion creates a new episode
type EpisodeCreatedEvent struct {
	Episode   *models.Episode
	timestamp int64
}

func NewEpisodeCreatedEvent(episode *models.Episode) *EpisodeCreatedEvent {
	return &EpisodeCreatedEvent{
		Episode:   episode,
		timestamp: time.Now().Unix(),
	}
}

func (e *EpisodeCreatedEvent) EventType() string {
	return "episode.created"
}

func (e *EpisodeCreatedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *EpisodeCreatedEvent) AggregateID() string {
	return e.Episode.ID.String()
}

// EpisodeMergedEvent is published when duplicate episodes are merged
type EpisodeMergedEvent struct {
	KeepID    uuid.UUID
	MergedIDs []uuid.UUID
	timestamp int64
}

func NewEpisodeMergedEvent(keepID uuid.UUID, mergedIDs []uuid.UUID) *EpisodeMergedEvent {
	return &EpisodeMergedEvent{
		KeepID:    keepID,
		MergedIDs: mergedIDs,
		timestamp: time.Now().Unix(),
	}
}

func (e *EpisodeMergedEvent) EventType() string {
	return "episode.merged"
}

func (e *EpisodeMergedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *EpisodeMergedEvent) AggregateID() string {
	return e.KeepID.String()
}

// EntityLinkedEvent is published when a junction row is created
type EntityLinkedEvent struct {
	EpisodeID  uuid.UUID
	TargetID   uuid.UUID
	TargetType models.EntityType
	timestamp  int64
}

func NewEntityLinkedEvent(episodeID, targetID uuid.UUID, targetType models.EntityType) *EntityLinkedEvent {
	return &EntityLinkedEvent{
		EpisodeID:  episodeID,
		TargetID:   targetID,
		TargetType: targetType,
		timestamp:  time.Now().Unix(),
	}
}

func (e *EntityLinkedEvent) EventType() string {
	return "entity.linked"
}

func (e *EntityLinkedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *EntityLinkedEvent) AggregateID() string {
	return e.TargetID.String()
}

// ListingAnnotatedEvent is published when affiliate metadata is written
type ListingAnnotatedEvent struct {
	EntityID   uuid.UUID
	EntityType models.EntityType
	Provider   string
	Verified   bool
	timestamp  int64
}

func NewListingAnnotatedEvent(entityID uuid.UUID, entityType models.EntityType, provider string, verified bool) *ListingAnnotatedEvent {
	return &ListingAnnotatedEvent{
		EntityID:   entityID,
		EntityType: entityType,
		Provider:   provider,
		Verified:   verified,
		timestamp:  time.Now().Unix(),
	}
}

func (e *ListingAnnotatedEvent) EventType() string {
	return "listing.annotated"
}

func (e *ListingAnnotatedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *ListingAnnotatedEvent) AggregateID() string {
	return e.EntityID.String()
}

// SyncCompletedEvent is published when a sync run reaches REPORTED
type SyncCompletedEvent struct {
	Run       *models.SyncRun
	timestamp int64
}

func NewSyncCompletedEvent(run *models.SyncRun) *SyncCompletedEvent {
	return &SyncCompletedEvent{
		Run:       run,
		timestamp: time.Now().Unix(),
	}
}

func (e *SyncCompletedEvent) EventType() string {
	return "sync.completed"
}

func (e *SyncCompletedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *SyncCompletedEvent) AggregateID() string {
	return e.Run.ID.String()
}
