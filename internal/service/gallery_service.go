package service

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/imagegallery/internal/cache"
	"github.com/imagegallery/internal/db"
	"github.com/imagegallery/internal/validation"
	"github.com/microcosm-cc/bluemonday"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrGalleryNotFound     = errors.New("gallery image not found")
	ErrGalleryImageMissing = errors.New("gallery image url is required")
	ErrGalleryImageInvalid = errors.New("gallery image url is invalid")
)

var plainTextPolicy = bluemonday.StrictPolicy()

const (
	DefaultPerPage = 12
	MaxPerPage     = 60
)

// GalleryService handles image records and the cached image list.
type GalleryService struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	logger log.FieldLogger
}

// GalleryFilter describes which page of the image list to return.
type GalleryFilter struct {
	Page    int
	PerPage int
}

// GalleryListResult aggregates paginated gallery results.
type GalleryListResult struct {
	Items      []db.Image `json:"items"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
}

// HasMore reports whether a later page exists.
func (r GalleryListResult) HasMore() bool {
	return r.Page < r.TotalPages
}

// GalleryInput represents fields accepted when creating an image record.
type GalleryInput struct {
	Title       string
	Description string
	URL         string
}

// NewGalleryService creates a GalleryService. A nil cache disables caching.
func NewGalleryService(gdb *gorm.DB, c cache.Cache, ttl time.Duration, logger log.FieldLogger) *GalleryService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &GalleryService{db: gdb, cache: c, ttl: ttl, logger: logger}
}

// List returns one page of images, newest first. Pages are served from the
// cache until the images key is invalidated.
func (s *GalleryService) List(ctx context.Context, filter GalleryFilter) (GalleryListResult, error) {
	page := normalizePage(filter.Page)
	perPage := normalizePerPage(filter.PerPage, DefaultPerPage)
	key := cache.Key(cache.ImagesKey, "page", strconv.Itoa(page), "per", strconv.Itoa(perPage))

	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	result := GalleryListResult{Page: page, PerPage: perPage}
	query := s.db.WithContext(ctx).Model(&db.Image{})
	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}

	result.TotalPages = calculateTotalPages(result.Total, perPage)
	offset := (page - 1) * perPage

	if err := query.Order("ts desc").Order("id desc").
		Limit(perPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, err
	}
	if result.Items == nil {
		result.Items = []db.Image{}
	}

	s.store(ctx, key, result)
	return result, nil
}

// Get fetches an image by id.
func (s *GalleryService) Get(ctx context.Context, id string) (*db.Image, error) {
	var item db.Image
	if err := s.db.WithContext(ctx).First(&item, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGalleryNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new image record. It does not touch the list cache;
// callers decide when to invalidate.
func (s *GalleryService) Create(ctx context.Context, input GalleryInput) (*db.Image, error) {
	input.Title = plainText(input.Title)
	input.Description = plainText(input.Description)
	if err := validateGalleryInput(input); err != nil {
		return nil, err
	}

	item := db.Image{
		Title:       input.Title,
		Description: input.Description,
		URL:         strings.TrimSpace(input.URL),
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	s.logger.WithFields(log.Fields{"id": item.ID, "url": item.URL}).Info("image created")
	return &item, nil
}

// CreateImage adapts Create to the form submission workflow.
func (s *GalleryService) CreateImage(ctx context.Context, title, description, imageURL string) error {
	_, err := s.Create(ctx, GalleryInput{Title: title, Description: description, URL: imageURL})
	return err
}

// InvalidateQueries drops every cached page of the key family.
func (s *GalleryService) InvalidateQueries(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, key)
}

func (s *GalleryService) cached(ctx context.Context, key string) (GalleryListResult, bool) {
	var result GalleryListResult
	if s.cache == nil {
		return result, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache read failed")
		return result, false
	}
	if !ok {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache entry is corrupt")
		return result, false
	}
	return result, true
}

func (s *GalleryService) store(ctx context.Context, key string, result GalleryListResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// plainText 去掉所有 HTML 标签，保留文本本身（实体还原为字符，渲染时再转义）
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(s)))
}

func validateGalleryInput(input GalleryInput) error {
	errs := validation.Errors{}
	if msg := validation.ValidateTitle(input.Title); msg != "" {
		errs[validation.FieldTitle] = msg
	}
	if msg := validation.ValidateDescription(input.Description); msg != "" {
		errs[validation.FieldDescription] = msg
	}
	if len(errs) > 0 {
		return errs
	}
	return validateImageURL(input.URL)
}

// validateImageURL accepts absolute http(s) URLs and site-relative paths.
func validateImageURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrGalleryImageMissing
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrGalleryImageInvalid
	}
	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		if parsed.Host == "" {
			return ErrGalleryImageInvalid
		}
	case parsed.Scheme == "" && parsed.Host == "" && strings.HasPrefix(parsed.Path, "/"):
	default:
		return ErrGalleryImageInvalid
	}
	return nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
