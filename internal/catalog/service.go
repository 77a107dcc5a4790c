package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/backend/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrArtworkNotFound indicates an update targeting an unknown artwork id.
	ErrArtworkNotFound = errors.New("catalog: artwork not found")

	errMissingStore      = errors.New("document store is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "catalog.service.new"
	opList       = "catalog.list"
	opCreate     = "catalog.create"
	opUpdate     = "catalog.update"
	opDelete     = "catalog.delete"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for new artworks.
type IDProvider interface {
	NewID() (string, error)
}

type ServiceConfig struct {
	Store      store.Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service implements the artwork catalog over a document store. Mutations
// follow read-modify-write on the whole collection; concurrent mutations can
// race and the later write wins, which is accepted at this scale.
type Service struct {
	store      store.Store
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:      cfg.Store,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns the entire catalog in stored order.
func (s *Service) List(ctx context.Context) ([]Artwork, error) {
	artworks := []Artwork{}
	if err := s.store.Load(ctx, store.CollectionArt, &artworks); err != nil {
		s.logError(opList, "load_failed", err)
		return nil, newServiceError(opList, "load_failed", err)
	}
	return artworks, nil
}

// Create appends a new artwork with a generated id and creation timestamp.
// IsActive defaults to true when the draft omits it.
func (s *Service) Create(ctx context.Context, draft Draft) (Artwork, error) {
	artworks := []Artwork{}
	if err := s.store.Load(ctx, store.CollectionArt, &artworks); err != nil {
		s.logError(opCreate, "load_failed", err)
		return Artwork{}, newServiceError(opCreate, "load_failed", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Artwork{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	isActive := true
	if draft.IsActive != nil {
		isActive = *draft.IsActive
	}

	artwork := Artwork{
		ID:          id,
		Title:       draft.Title,
		Category:    draft.Category,
		Image:       draft.Image,
		Description: draft.Description,
		CreatedAt:   s.clock().UTC(),
		IsActive:    isActive,
	}

	artworks = append(artworks, artwork)
	if err := s.store.Save(ctx, store.CollectionArt, artworks); err != nil {
		s.logError(opCreate, "save_failed", err, zap.String("artwork_id", id))
		return Artwork{}, newServiceError(opCreate, "save_failed", err)
	}

	return artwork, nil
}

// Update merges the patch onto the artwork with the given id, preserving
// untouched fields, and returns the merged record.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Artwork, error) {
	artworks := []Artwork{}
	if err := s.store.Load(ctx, store.CollectionArt, &artworks); err != nil {
		s.logError(opUpdate, "load_failed", err, zap.String("artwork_id", id))
		return Artwork{}, newServiceError(opUpdate, "load_failed", err)
	}

	index := -1
	for i := range artworks {
		if artworks[i].ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return Artwork{}, newServiceError(opUpdate, "artwork_not_found", ErrArtworkNotFound)
	}

	patch.apply(&artworks[index])
	if err := s.store.Save(ctx, store.CollectionArt, artworks); err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String("artwork_id", id))
		return Artwork{}, newServiceError(opUpdate, "save_failed", err)
	}

	return artworks[index], nil
}

// Delete removes the artwork with the given id. Deleting an unknown id is a
// no-op, not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	artworks := []Artwork{}
	if err := s.store.Load(ctx, store.CollectionArt, &artworks); err != nil {
		s.logError(opDelete, "load_failed", err, zap.String("artwork_id", id))
		return newServiceError(opDelete, "load_failed", err)
	}

	remaining := artworks[:0]
	for _, artwork := range artworks {
		if artwork.ID != id {
			remaining = append(remaining, artwork)
		}
	}

	if err := s.store.Save(ctx, store.CollectionArt, remaining); err != nil {
		s.logError(opDelete, "save_failed", err, zap.String("artwork_id", id))
		return newServiceError(opDelete, "save_failed", err)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("catalog service error", attrs...)
}
