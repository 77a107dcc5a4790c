package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/backend/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrMissingFields indicates a submission without one of the required
	// fields (name, email, style) or without an attachment.
	ErrMissingFields = errors.New("intake: missing required fields")

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
	opServiceNew = "intake.service.new"
	opSubmit     = "intake.submit"
	opList       = "intake.list"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for new requests.
type IDProvider interface {
	NewID() (string, error)
}

// Uploader hosts an attachment externally and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// Notifier delivers a one-way message about a new request.
type Notifier interface {
	Notify(ctx context.Context, request CommissionRequest) error
}

type ServiceConfig struct {
	Store      store.Store
	Uploader   Uploader
	Notifier   Notifier
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service orchestrates the intake pipeline: validate, host the attachment,
// append the request to the collection, then notify. Hosting and
// notification are best-effort; only validation and persistence failures
// surface to the caller.
type Service struct {
	store      store.Store
	uploader   Uploader
	notifier   Notifier
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
		uploader:   cfg.Uploader,
		notifier:   cfg.Notifier,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Submit runs the intake pipeline for one submission and returns the
// persisted request. The request is durably appended before any
// notification is attempted, so a lost email never loses the submission.
func (s *Service) Submit(ctx context.Context, submission Submission) (CommissionRequest, error) {
	if submission.Name == "" || submission.Email == "" || submission.Style == "" || len(submission.File) == 0 {
		return CommissionRequest{}, newServiceError(opSubmit, "missing_fields", ErrMissingFields)
	}

	var fileURL *string
	if s.uploader != nil {
		url, err := s.uploader.Upload(ctx, submission.File, submission.FileName)
		if err != nil {
			s.logger.Warn("attachment hosting failed, continuing without URL",
				zap.String("file_name", submission.FileName),
				zap.Error(err))
		} else {
			fileURL = &url
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubmit, "id_generation_failed", err)
		return CommissionRequest{}, newServiceError(opSubmit, "id_generation_failed", err)
	}

	request := CommissionRequest{
		ID:        id,
		Name:      submission.Name,
		Email:     submission.Email,
		Social:    submission.Social,
		Style:     submission.Style,
		Notes:     submission.Notes,
		FileName:  submission.FileName,
		FileURL:   fileURL,
		Status:    StatusRequested,
		CreatedAt: s.clock().UTC(),
		ResultURL: nil,
	}

	requests := []CommissionRequest{}
	if err := s.store.Load(ctx, store.CollectionRequests, &requests); err != nil {
		s.logError(opSubmit, "load_failed", err, zap.String("request_id", id))
		return CommissionRequest{}, newServiceError(opSubmit, "load_failed", err)
	}
	requests = append(requests, request)
	if err := s.store.Save(ctx, store.CollectionRequests, requests); err != nil {
		s.logError(opSubmit, "save_failed", err, zap.String("request_id", id))
		return CommissionRequest{}, newServiceError(opSubmit, "save_failed", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, request); err != nil {
			s.logger.Warn("request notification failed",
				zap.String("request_id", id),
				zap.Error(err))
		}
	}

	return request, nil
}

// List returns the entire requests collection in stored order.
func (s *Service) List(ctx context.Context) ([]CommissionRequest, error) {
	requests := []CommissionRequest{}
	if err := s.store.Load(ctx, store.CollectionRequests, &requests); err != nil {
		s.logError(opList, "load_failed", err)
		return nil, newServiceError(opList, "load_failed", err)
	}
	return requests, nil
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
	s.logger.Error("intake service error", attrs...)
}
