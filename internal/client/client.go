package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/imagegallery/internal/cache"
	"github.com/imagegallery/internal/validation"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gallery api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gallery api: status %d: %s", e.StatusCode, e.Message)
}

// Image mirrors the JSON image record.
type Image struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Ts          int64  `json:"ts"`
}

// ImagePage is one page of the image list.
type ImagePage struct {
	Items      []Image `json:"items"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"total_pages"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
}

// Upload is the result of a file upload.
type Upload struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type createImageRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Client talks to the gallery JSON API and keeps a local query cache of
// image list pages.
type Client struct {
	baseURL string
	http    httpDoer
	queries cache.Cache
	ttl     time.Duration
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		queries: cache.NewMemoryCache(0),
		ttl:     time.Minute,
	}
}

func (c *Client) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{}
		return
	}
	c.http = client
}

// Close releases the query cache.
func (c *Client) Close() error {
	return c.queries.Close()
}

// CreateImage sends POST /api/images. Any 2xx status is success; the
// request runs until ctx is done.
func (c *Client) CreateImage(ctx context.Context, title, description, imageURL string) error {
	body, err := json.Marshal(createImageRequest{Title: title, Description: description, URL: imageURL})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/images", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// ListImages fetches a page of images, serving repeated calls from the
// query cache until InvalidateQueries drops it.
func (c *Client) ListImages(ctx context.Context, page int) (*ImagePage, error) {
	if page < 1 {
		page = 1
	}
	key := cache.Key(cache.ImagesKey, "page", strconv.Itoa(page))

	if data, ok, err := c.queries.Get(ctx, key); err == nil && ok {
		var cached ImagePage
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/images?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result ImagePage
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		_ = c.queries.Set(ctx, key, data, c.ttl)
	}
	return &result, nil
}

// InvalidateQueries drops cached pages of the key family.
func (c *Client) InvalidateQueries(ctx context.Context, key string) error {
	return c.queries.Invalidate(ctx, key)
}

// InspectFile reads the size and sniffed content type of a local file.
func InspectFile(path string) (validation.FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return validation.FileInfo{}, err
	}
	if stat.IsDir() {
		return validation.FileInfo{}, fmt.Errorf("%s is a directory", path)
	}
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return validation.FileInfo{}, fmt.Errorf("detect content type: %w", err)
	}
	return validation.FileInfo{
		Name:        filepath.Base(path),
		Size:        stat.Size(),
		ContentType: detected.String(),
	}, nil
}

// UploadFile sends a local file to POST /api/uploads and returns the hosted URL.
func (c *Client) UploadFile(ctx context.Context, path string, info validation.FileInfo) (*Upload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, validation.FieldFile, escapeQuotes(info.Name)))
	header.Set("Content-Type", info.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result Upload
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
