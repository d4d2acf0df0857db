package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/imagegallery/internal/cache"
	"github.com/imagegallery/internal/notify"
	log "github.com/sirupsen/logrus"
)

// ErrUploadMissing is returned when the form is submitted before its file
// finished uploading.
var ErrUploadMissing = errors.New("image upload has not completed")

// Outcome tells the caller how a submission ended.
type Outcome int

const (
	// OutcomeInvalid means a field rule failed; nothing was sent and the
	// form stays open for correction.
	OutcomeInvalid Outcome = iota
	// OutcomeMissingUpload means no hosted URL was available yet.
	OutcomeMissingUpload
	// OutcomeCreated means the record was created.
	OutcomeCreated
	// OutcomeFailed means the create request was attempted and rejected.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeMissingUpload:
		return "missing_upload"
	case OutcomeCreated:
		return "created"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Creator issues the create-record request.
type Creator interface {
	CreateImage(ctx context.Context, title, description, url string) error
}

// Invalidator marks cached query data as stale.
type Invalidator interface {
	InvalidateQueries(ctx context.Context, key string) error
}

var (
	missingUploadNotice = notify.Notification{
		Kind:        notify.KindWarning,
		Title:       "Image not added",
		Description: "You need to add an image and wait for the upload before registering.",
	}
	createdNotice = notify.Notification{
		Kind:        notify.KindSuccess,
		Title:       "Image registered",
		Description: "Your image was registered successfully",
	}
	failedNotice = notify.Notification{
		Kind:        notify.KindError,
		Title:       "Registration failed",
		Description: "An error occurred while trying to register your image.",
	}
)

// Submitter runs the add-image submission workflow.
type Submitter struct {
	creator     Creator
	invalidator Invalidator
	notifier    notify.Notifier
	logger      log.FieldLogger
}

// NewSubmitter wires a Submitter. A nil logger falls back to the standard logrus logger.
func NewSubmitter(creator Creator, invalidator Invalidator, notifier notify.Notifier, logger log.FieldLogger) *Submitter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Submitter{
		creator:     creator,
		invalidator: invalidator,
		notifier:    notifier,
		logger:      logger,
	}
}

// Submit validates f and, when valid, sends it. Field errors leave the form
// open with its values. Every other path ends with the form reset and closed.
func (s *Submitter) Submit(ctx context.Context, f *Form) (Outcome, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return OutcomeInvalid, errs
	}

	defer func() {
		f.Reset()
		f.Close()
	}()

	if !f.Upload.Done() {
		s.notifier.Notify(missingUploadNotice)
		return OutcomeMissingUpload, ErrUploadMissing
	}

	err := s.creator.CreateImage(ctx, f.Values.Title, f.Values.Description, f.Upload.RemoteURL)
	if err != nil {
		s.logger.WithError(err).Warn("create image request failed")
		s.notifier.Notify(failedNotice)
		return OutcomeFailed, fmt.Errorf("create image: %w", err)
	}

	if err := s.invalidator.InvalidateQueries(ctx, cache.ImagesKey); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate image list")
	}
	s.notifier.Notify(createdNotice)
	return OutcomeCreated, nil
}
