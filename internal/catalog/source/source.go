package source

import (
	"context"
	"time"
)

// LocationRecord is a scraped venue tied to a source video page.
type LocationRecord struct {
	Name            string   `json:"name"`
	Address         string   `json:"address,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ListingURL      string   `json:"listing_url,omitempty"`
	ListingProvider string   `json:"listing_provider,omitempty"`
}

// ItemRecord is a scraped purchasable item tied to a source video page.
type ItemRecord struct {
	Name              string   `json:"name"`
	Price             float64  `json:"price,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	AffiliateURL      string   `json:"affiliate_url,omitempty"`
	AffiliateProvider string   `json:"affiliate_provider,omitempty"`
}

// Record is one candidate episode from the video metadata source,
// together with the entities scraped from the same page.
type Record struct {
	ExternalRef   string           `json:"external_ref"`
	Platform      string           `json:"platform"`
	Title         string           `json:"title"`
	PublishedAt   *time.Time       `json:"published_at,omitempty"`
	CelebrityHint string           `json:"celebrity_hint"`
	Locations     []LocationRecord `json:"locations,omitempty"`
	Items         []ItemRecord     `json:"items,omitempty"`
}

// Page is one page of candidate records.
type Page struct {
	Records       []Record `json:"records"`
	NextPageToken string   `json:"next_page_token,omitempty"`
}

// CandidateSource delivers paged candidate records for a celebrity.
// The pipeline only consumes this typed shape; fetching details belong
// to the implementation.
type CandidateSource interface {
	FetchPage(ctx context.Context, celebritySlug, pageToken string, pageSize int) (*Page, error)
}
