package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgex-labs/edgex/backend/internal/model/resource"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
	"github.com/edgex-labs/edgex/backend/internal/store"
	"github.com/edgex-labs/edgex/backend/internal/vault"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("only the poster can change this resource")
)

// Repository is the resource part of the document store.
type Repository interface {
	CreateResource(ctx context.Context, r *resource.Resource) error
	GetResource(ctx context.Context, id string) (*resource.Resource, error)
	UpdateResource(ctx context.Context, r *resource.Resource) error
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context) ([]resource.Resource, error)
}

// Service manages shared vault resources.
type Service struct {
	repo Repository

	// read-modify-write of one document is serialized per process only
	mu sync.Mutex
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// All returns every resource, newest first, as seen by viewerID.
func (s *Service) All(ctx context.Context, viewerID string) ([]resource.Resource, error) {
	all, err := s.repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i] = all[i].ViewFor(viewerID)
	}
	return all, nil
}

// List runs the filter/sort pipeline over every resource.
func (s *Service) List(ctx context.Context, viewerID string, q vault.Query) ([]resource.Resource, error) {
	all, err := s.All(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return vault.Apply(all, q), nil
}

// Tags returns the sorted set of tags in use.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	all, err := s.repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	return vault.AllTags(all), nil
}

// Add validates and stores a new resource posted by poster.
func (s *Service) Add(ctx context.Context, poster user.User, draft resource.Draft) (resource.Resource, error) {
	if errs := draft.Validate(); errs != nil {
		return resource.Resource{}, errs
	}
	d := draft.Normalized()

	r := &resource.Resource{
		Title:       d.Title,
		URL:         d.URL,
		Description: d.Description,
		Tags:        d.Tags,
		Domain:      resource.ExtractDomain(d.URL),
		Upvoters:    []string{},
		PostedBy: resource.Poster{
			ID:     poster.ID,
			Name:   poster.DisplayName(),
			Avatar: poster.Avatar(),
		},
	}
	if err := s.repo.CreateResource(ctx, r); err != nil {
		return resource.Resource{}, fmt.Errorf("create resource: %w", err)
	}
	slog.Info("resource added", "component", "vault", "id", r.ID, "domain", r.Domain)
	return r.ViewFor(poster.ID), nil
}

// Update replaces the editable fields. Only the poster may update.
func (s *Service) Update(ctx context.Context, userID, id string, draft resource.Draft) (resource.Resource, error) {
	if errs := draft.Validate(); errs != nil {
		return resource.Resource{}, errs
	}
	d := draft.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return resource.Resource{}, err
	}
	r.Title = d.Title
	r.URL = d.URL
	r.Description = d.Description
	r.Tags = d.Tags
	r.Domain = resource.ExtractDomain(d.URL)
	if err := s.repo.UpdateResource(ctx, r); err != nil {
		return resource.Resource{}, mapErr(err)
	}
	return r.ViewFor(userID), nil
}

// Delete removes a resource. Only the poster may delete.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return mapErr(s.repo.DeleteResource(ctx, id))
}

// ToggleUpvote adds or removes userID's upvote.
func (s *Service) ToggleUpvote(ctx context.Context, userID, id string) (resource.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return resource.Resource{}, mapErr(err)
	}

	voters := make([]string, 0, len(r.Upvoters)+1)
	removed := false
	for _, v := range r.Upvoters {
		if v == userID {
			removed = true
			continue
		}
		voters = append(voters, v)
	}
	if !removed {
		voters = append(voters, userID)
	}
	r.Upvoters = voters
	r.Upvotes = len(voters)

	if err := s.repo.UpdateResource(ctx, r); err != nil {
		return resource.Resource{}, mapErr(err)
	}
	return r.ViewFor(userID), nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*resource.Resource, error) {
	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if r.PostedBy.ID != userID {
		return nil, ErrForbidden
	}
	return r, nil
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
