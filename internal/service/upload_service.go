package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/imagegallery/internal/storage"
	"github.com/imagegallery/internal/validation"
	log "github.com/sirupsen/logrus"
)

var ErrUploadStoreFailed = errors.New("failed to store upload")

// UploadResult describes a stored file.
type UploadResult struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// UploadService validates image files and hands them to a storage backend.
type UploadService struct {
	store  storage.Store
	now    func() time.Time
	logger log.FieldLogger
}

func NewUploadService(store storage.Store, logger log.FieldLogger) *UploadService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &UploadService{store: store, now: time.Now, logger: logger}
}

// FileInfo extracts the declared metadata of a multipart file.
func FileInfo(fh *multipart.FileHeader) validation.FileInfo {
	return validation.FileInfo{
		Name:        filepath.Base(fh.Filename),
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}
}

// Upload validates and stores a multipart file.
func (s *UploadService) Upload(ctx context.Context, fh *multipart.FileHeader) (*UploadResult, error) {
	info := FileInfo(fh)
	if msg := validation.ValidateFile(&info); msg != "" {
		return nil, validation.Errors{validation.FieldFile: msg}
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return s.UploadFile(ctx, info, file)
}

// UploadFile applies the file rules to info, checks that the content really
// is png, jpeg or gif, and stores it.
func (s *UploadService) UploadFile(ctx context.Context, info validation.FileInfo, r io.ReadSeeker) (*UploadResult, error) {
	if msg := validation.ValidateFile(&info); msg != "" {
		return nil, validation.Errors{validation.FieldFile: msg}
	}

	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	contentType := detected.String()
	if !validation.AcceptedContentType(contentType) {
		s.logger.WithFields(log.Fields{
			"declared": info.ContentType,
			"detected": contentType,
		}).Warn("upload content does not match an accepted image type")
		return nil, validation.Errors{validation.FieldFile: validation.MsgFileFormat}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	name := strings.TrimSpace(info.Name)
	if filepath.Ext(name) == "" {
		name += detected.Extension()
	}
	key := storage.ObjectKey(name, s.now())

	url, err := s.store.Put(ctx, key, r, info.Size, contentType)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("upload store failed")
		return nil, fmt.Errorf("%w: %v", ErrUploadStoreFailed, err)
	}

	return &UploadResult{
		URL:         url,
		Name:        info.Name,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}
