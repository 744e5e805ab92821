package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CelebrityStatus represents the lifecycle state of a tracked celebrity.
type CelebrityStatus string

const (
	CelebrityStatusActive   CelebrityStatus = "active"
	CelebrityStatusInactive CelebrityStatus = "inactive"
)

// EntityType identifies which kind of catalog entity a candidate or link targets.
type EntityType string

const (
	EntityTypeEpisode  EntityType = "episode"
	EntityTypeLocation EntityType = "location"
	EntityTypeItem     EntityType = "item"
)

// Celebrity represents a tracked celebrity or channel.
type Celebrity struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string          `json:"name" gorm:"not null"`
	Slug      string          `json:"slug" gorm:"uniqueIndex;not null"`
	Status    CelebrityStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relationships
	Episodes []Episode `json:"-" gorm:"foreignKey:CelebrityID"`
}

// Episode represents one published video episode owned by a Celebrity.
// The (celebrity, platform, external ref) triple is unique: two episodes
// must never point at the same source video. Episodes ingested without a
// ref are exempt until one arrives, so the index only binds real refs.
type Episode struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CelebrityID      uuid.UUID      `json:"celebrity_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_episodes_scope_ref"`
	Title            string         `json:"title" gorm:"not null;index"`
	NormalizedTitle  string         `json:"normalized_title" gorm:"index"`
	AirDate          *time.Time     `json:"air_date,omitempty"`
	ExternalPlatform string         `json:"external_platform" gorm:"type:varchar(50);not null;uniqueIndex:idx_episodes_scope_ref"`
	ExternalRef      string         `json:"external_ref" gorm:"not null;uniqueIndex:idx_episodes_scope_ref,where:external_ref <> ''"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Celebrity Celebrity `json:"-" gorm:"foreignKey:CelebrityID"`
}

// Location represents a physical place visited in an episode.
// EpisodeID is the legacy denormalized shortcut; the junction table is
// the canonical relation and the two must stay consistent.
type Location struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CelebrityID      uuid.UUID      `json:"celebrity_id" gorm:"type:uuid;not null;index"`
	EpisodeID        *uuid.UUID     `json:"episode_id,omitempty" gorm:"type:uuid;index"`
	Name             string         `json:"name" gorm:"not null"`
	NormalizedName   string         `json:"normalized_name" gorm:"index"`
	Slug             string         `json:"slug" gorm:"uniqueIndex;not null"`
	Address          string         `json:"address,omitempty"`
	ListingURL       string         `json:"listing_url,omitempty"`
	ListingProvider  string         `json:"listing_provider,omitempty" gorm:"type:varchar(100)"`
	ListingVerified  bool           `json:"listing_verified" gorm:"default:false"`
	AffiliateEnabled bool           `json:"affiliate_enabled" gorm:"default:false"`
	Tags             []string       `json:"tags,omitempty" gorm:"serializer:json"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Celebrity Celebrity `json:"-" gorm:"foreignKey:CelebrityID"`
}

// Item represents a purchasable item featured in an episode.
type Item struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CelebrityID       uuid.UUID      `json:"celebrity_id" gorm:"type:uuid;not null;index"`
	EpisodeID         *uuid.UUID     `json:"episode_id,omitempty" gorm:"type:uuid;index"`
	Name              string         `json:"name" gorm:"not null"`
	NormalizedName    string         `json:"normalized_name" gorm:"index"`
	Slug              string         `json:"slug" gorm:"uniqueIndex;not null"`
	Price             float64        `json:"price,omitempty"`
	AffiliateURL      string         `json:"affiliate_url,omitempty"`
	AffiliateProvider string         `json:"affiliate_provider,omitempty" gorm:"type:varchar(100)"`
	AffiliateVerified bool           `json:"affiliate_verified" gorm:"default:false"`
	AffiliateEnabled  bool           `json:"affiliate_enabled" gorm:"default:false"`
	Tags              []string       `json:"tags,omitempty" gorm:"serializer:json"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Celebrity Celebrity `json:"-" gorm:"foreignKey:CelebrityID"`
}

// EpisodeLocationLink is a junction row between an episode and a location.
type EpisodeLocationLink struct {
	EpisodeID  uuid.UUID `json:"episode_id" gorm:"type:uuid;primaryKey"`
	LocationID uuid.UUID `json:"location_id" gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
}

// EpisodeItemLink is a junction row between an episode and an item.
type EpisodeItemLink struct {
	EpisodeID uuid.UUID `json:"episode_id" gorm:"type:uuid;primaryKey"`
	ItemID    uuid.UUID `json:"item_id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncRunState tracks the orchestrator state machine.
type SyncRunState string

const (
	SyncRunStateFetching    SyncRunState = "fetching"
	SyncRunStateClassifying SyncRunState = "classifying"
	SyncRunStatePersisting  SyncRunState = "persisting"
	SyncRunStateLinking     SyncRunState = "linking"
	SyncRunStateAnnotating  SyncRunState = "annotating"
	SyncRunStateReported    SyncRunState = "reported"
	SyncRunStateAborted     SyncRunState = "aborted"
)

// RunError records one unresolved error surfaced to the run report.
type RunError struct {
	EntityID string `json:"entity_id,omitempty"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// SyncRun is the persisted record of one orchestrator run. Interrupted
// runs stay inspectable here, and since every downstream operation is
// idempotent a rerun of the same page is safe.
type SyncRun struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	CelebrityID uuid.UUID    `json:"celebrity_id" gorm:"type:uuid;not null;index"`
	State       SyncRunState `json:"state" gorm:"type:varchar(20);not null;index"`
	DryRun      bool         `json:"dry_run" gorm:"default:false"`
	Created     int          `json:"created" gorm:"default:0"`
	Updated     int          `json:"updated" gorm:"default:0"`
	Linked      int          `json:"linked" gorm:"default:0"`
	Skipped     int          `json:"skipped" gorm:"default:0"`
	Failed      int          `json:"failed" gorm:"default:0"`
	Errors      []RunError   `json:"errors,omitempty" gorm:"serializer:json"`
	StartedAt   time.Time    `json:"started_at" gorm:"not null;index"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// TableName customizations.
func (Celebrity) TableName() string {
	return "celebrities"
}

func (Episode) TableName() string {
	return "episodes"
}

func (Location) TableName() string {
	return "locations"
}

func (Item) TableName() string {
	return "items"
}

func (EpisodeLocationLink) TableName() string {
	return "episode_location_links"
}

func (EpisodeItemLink) TableName() string {
	return "episode_item_links"
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
