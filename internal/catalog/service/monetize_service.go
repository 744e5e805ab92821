package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
	"github.com/fanloremedia/fanlore/pkg/interfaces"
	"github.com/fanloremedia/fanlore/pkg/models"
)

// ListingCandidate is affiliate metadata proposed for an entity.
type ListingCandidate struct {
	URL      string
	Provider string
	Verified bool
}

// AnnotationResult reports whether the candidate was applied.
type AnnotationResult struct {
	Applied bool
	Reason  string
}

// MonetizeService writes affiliate and listing metadata onto entities.
// Only allow-listed providers are accepted, and verified data is never
// regressed by an unverified candidate.
type MonetizeService struct {
	repo             repository.Repository
	eventBus         interfaces.EventBus
	logger           interfaces.Logger
	allowedProviders []string
}

// NewMonetizeService creates a new monetize service.
func NewMonetizeService(repo repository.Repository, eventBus interfaces.EventBus, logger interfaces.Logger, allowedProviders []string) *MonetizeService {
	return &MonetizeService{
		repo:             repo,
		eventBus:         eventBus,
		logger:           logger,
		allowedProviders: allowedProviders,
	}
}

// checkProvider validates the candidate URL host against the allow-list.
// Subdomains of an allowed provider pass; everything else is rejected.
func (s *MonetizeService) checkProvider(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", pkgerrors.BadRequest(fmt.Sprintf("malformed listing URL %q", rawURL))
	}
	host := strings.ToLower(parsed.Hostname())
	for _, provider := range s.allowedProviders {
		if host == provider || strings.HasSuffix(host, "."+provider) {
			return provider, nil
		}
	}
	return "", pkgerrors.UntrustedProvider(fmt.Sprintf("provider %q is not allow-listed", host))
}

// AnnotateLocation applies a listing candidate to a location.
func (s *MonetizeService) AnnotateLocation(ctx context.Context, id uuid.UUID, candidate ListingCandidate) (*AnnotationResult, error) {
	provider, err := s.checkProvider(candidate.URL)
	if err != nil {
		return nil, err
	}
	if candidate.Provider == "" {
		candidate.Provider = provider
	}

	location, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}

	// Verified data only yields to verified data.
	if location.ListingVerified && !candidate.Verified {
		return &AnnotationResult{Applied: false, Reason: "existing listing is verified"}, nil
	}
	if location.ListingURL == candidate.URL && location.ListingVerified == candidate.Verified {
		return &AnnotationResult{Applied: false, Reason: "listing already current"}, nil
	}

	if err := s.repo.SetLocationListing(ctx, id, candidate.URL, candidate.Provider, candidate.Verified); err != nil {
		return nil, err
	}
	if s.eventBus != nil {
		s.eventBus.PublishAsync(ctx, domain.NewListingAnnotatedEvent(id, models.EntityTypeLocation, candidate.Provider, candidate.Verified))
	}
	return &AnnotationResult{Applied: true}, nil
}

// AnnotateItem applies an affiliate candidate to an item.
func (s *MonetizeService) AnnotateItem(ctx context.Context, id uuid.UUID, candidate ListingCandidate) (*AnnotationResult, error) {
	provider, err := s.checkProvider(candidate.URL)
	if err != nil {
		return nil, err
	}
	if candidate.Provider == "" {
		candidate.Provider = provider
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if item.AffiliateVerified && !candidate.Verified {
		return &AnnotationResult{Applied: false, Reason: "existing affiliate link is verified"}, nil
	}
	if item.AffiliateURL == candidate.URL && item.AffiliateVerified == candidate.Verified {
		return &AnnotationResult{Applied: false, Reason: "affiliate link already current"}, nil
	}

	if err := s.repo.SetItemAffiliate(ctx, id, candidate.URL, candidate.Provider, candidate.Verified); err != nil {
		return nil, err
	}
	if s.eventBus != nil {
		s.eventBus.PublishAsync(ctx, domain.NewListingAnnotatedEvent(id, models.EntityTypeItem, candidate.Provider, candidate.Verified))
	}
	return &AnnotationResult{Applied: true}, nil
}

// EnableAffiliate flips the affiliate flag on an entity that has listing
// metadata. Idempotent.
func (s *MonetizeService) EnableAffiliate(ctx context.Context, id uuid.UUID, entityType models.EntityType) error {
	switch entityType {
	case models.EntityTypeLocation:
		location, err := s.repo.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if location.AffiliateEnabled {
			return nil
		}
		if location.ListingURL == "" {
			return pkgerrors.Conflict("location has no listing to monetize").WithEntity(id.String())
		}
		return s.repo.EnableLocationAffiliate(ctx, id)
	case models.EntityTypeItem:
		item, err := s.repo.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if item.AffiliateEnabled {
			return nil
		}
		if item.AffiliateURL == "" {
			return pkgerrors.Conflict("item has no affiliate link to monetize").WithEntity(id.String())
		}
		return s.repo.EnableItemAffiliate(ctx, id)
	default:
		return pkgerrors.BadRequest(fmt.Sprintf("cannot monetize entity type %s", entityType))
	}
}
