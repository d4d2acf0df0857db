package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/cache"
	"github.com/imagegallery/internal/db"
	"github.com/imagegallery/internal/service"
	"github.com/imagegallery/internal/storage"
	"github.com/imagegallery/internal/view"
	"github.com/imagegallery/web"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type failingStore struct{}

func (failingStore) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingStore) Close() error { return nil }

type testApp struct {
	t       *testing.T
	db      *gorm.DB
	api     *API
	cache   *cache.MemoryCache
	engine  *gin.Engine
	cookies []*http.Cookie
	dir     string
}

func newTestApp(t *testing.T, store storage.Store) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	quiet := log.New()
	quiet.SetLevel(log.PanicLevel)

	dir := t.TempDir()
	if store == nil {
		local, err := storage.NewLocalStore(dir, "/static/uploads")
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		store = local
	}

	memCache := cache.NewMemoryCache(0)
	t.Cleanup(func() {
		memCache.Close()
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	api := NewAPI(gdb, service.NewGalleryService(gdb, memCache, 0, quiet), service.NewUploadService(store, quiet), quiet)

	tmpl, err := web.Templates(template.FuncMap{"icon": view.Icon, "iconLabel": view.IconLabel})
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}

	r := gin.New()
	r.Use(sessions.Sessions("gallery_session", cookie.NewStore([]byte("test-secret"))))
	r.SetHTMLTemplate(tmpl)
	r.GET("/", api.ShowGallery)
	r.GET("/images/more", api.LoadMoreGallery)
	r.GET("/images/new", api.ShowImageForm)
	r.POST("/images/form", api.SubmitImageForm)
	r.POST("/images/form/upload", api.UploadFormImage)
	r.POST("/images/form/cancel", api.CancelImageForm)
	r.POST("/viewer/open", api.OpenViewer)
	r.POST("/viewer/close", api.CloseViewer)
	r.GET("/api/images", api.ListImages)
	r.GET("/api/images/:id", api.GetImage)
	r.POST("/api/images", api.CreateImage)
	r.POST("/api/uploads", api.UploadImage)
	r.GET("/health", api.HealthCheck)

	return &testApp{t: t, db: gdb, api: api, cache: memCache, engine: r, dir: dir}
}

// do 发送请求并在多次请求之间保留会话 cookie
func (a *testApp) do(req *http.Request, htmx bool) *httptest.ResponseRecorder {
	a.t.Helper()
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)
	// 同名 cookie 以最后一次写入为准
	for _, fresh := range rr.Result().Cookies() {
		replaced := false
		for i, c := range a.cookies {
			if c.Name == fresh.Name {
				a.cookies[i] = fresh
				replaced = true
			}
		}
		if !replaced {
			a.cookies = append(a.cookies, fresh)
		}
	}
	return rr
}

func (a *testApp) get(path string, htmx bool) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), htmx)
}

func (a *testApp) postForm(path string, values url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, htmx)
}

func (a *testApp) postFile(path, name, contentType string, data []byte, fields map[string]string, htmx bool) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		a.t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return a.do(req, htmx)
}

func (a *testApp) imageCount() int64 {
	var count int64
	if err := a.db.Model(&db.Image{}).Count(&count).Error; err != nil {
		a.t.Fatalf("count images: %v", err)
	}
	return count
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestShowGalleryListsNewestFirst(t *testing.T) {
	app := newTestApp(t, nil)
	app.db.Create(&db.Image{Title: "Older", Description: "first", URL: "/a.png", Ts: 1000})
	app.db.Create(&db.Image{Title: "Newer", Description: "**second**", URL: "/b.png", Ts: 2000})

	rr := app.get("/", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	newer, older := strings.Index(body, "Newer"), strings.Index(body, "Older")
	if newer < 0 || older < 0 || newer > older {
		t.Fatalf("expected newest image first")
	}
	if !strings.Contains(body, "<strong>second</strong>") {
		t.Fatalf("expected rendered markdown description")
	}
	if strings.Contains(body, `id="image-form-modal"`) || strings.Contains(body, `id="image-viewer"`) {
		t.Fatalf("expected form and viewer to start closed")
	}
}

func TestSiteNameInPageHeader(t *testing.T) {
	app := newTestApp(t, nil)
	app.api.SetSiteName("Harbor Photos")
	app.api.SetSiteName("")

	body := app.get("/", false).Body.String()
	if !strings.Contains(body, "<h1>Harbor Photos</h1>") {
		t.Fatalf("expected configured site name in header")
	}
}

func TestLoadMoreGallery(t *testing.T) {
	app := newTestApp(t, nil)
	for i := 0; i < galleryPerPage+1; i++ {
		app.db.Create(&db.Image{Title: fmt.Sprintf("Image %02d", i), Description: "d", URL: "/x.png", Ts: int64(1000 + i)})
	}

	rr := app.get("/", false)
	if !strings.Contains(rr.Body.String(), "/images/more?page=2") {
		t.Fatalf("expected load more link on first page")
	}

	rr = app.get("/images/more?page=2", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Image 00") || strings.Contains(rr.Body.String(), "load-more") {
		t.Fatalf("unexpected second page: %s", rr.Body.String())
	}

	if rr := app.get("/images/more?page=1", true); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for first page fragment, got %d", rr.Code)
	}
}

// htmx 1.x 只替换 2xx/3xx 响应，字段错误片段必须可被替换
func swappable(rr *httptest.ResponseRecorder) bool {
	return rr.Code >= 200 && rr.Code < 400
}

func TestSubmitImageFormInvalidKeepsFormOpen(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.get("/images/new", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	// 提交时不再重复发送文件，文件只由选择时的上传请求携带
	if !strings.Contains(rr.Body.String(), `hx-post="/images/form" hx-params="not image"`) || !strings.Contains(rr.Body.String(), `hx-params="*"`) {
		t.Fatalf("expected submit to exclude the file part")
	}

	rr = app.postForm("/images/form", url.Values{"title": {"a"}, "description": {""}}, true)
	if !swappable(rr) {
		t.Fatalf("expected HTMX field errors to be swappable, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, msg := range []string{"File is required", "Minimum of 2 characters", "Description is required"} {
		if !strings.Contains(body, msg) {
			t.Fatalf("expected %q in form fragment", msg)
		}
	}
	if !strings.Contains(body, `value="a"`) {
		t.Fatalf("expected entered title to be kept")
	}
	if strings.Contains(body, `id="gallery-grid"`) {
		t.Fatalf("expected a form fragment for HTMX")
	}

	page := app.get("/", false).Body.String()
	if !strings.Contains(page, `id="image-form-modal"`) {
		t.Fatalf("expected form to stay open after field errors")
	}
	if app.imageCount() != 0 {
		t.Fatalf("expected no record to be created")
	}
}

func TestSubmitImageFormInvalidWithoutHTMXRendersPage(t *testing.T) {
	app := newTestApp(t, nil)
	app.get("/images/new", false)

	rr := app.postForm("/images/form", url.Values{"title": {"Cat"}, "description": {"A cat"}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="gallery-grid"`) || !strings.Contains(body, `id="image-form-modal"`) {
		t.Fatalf("expected full page with the form open")
	}
	if !strings.Contains(body, "File is required") || !strings.Contains(body, `value="Cat"`) {
		t.Fatalf("expected inline errors and kept values")
	}
}

func TestSubmitImageFormWithoutHTMXUploadsFile(t *testing.T) {
	app := newTestApp(t, nil)
	app.get("/images/new", false)

	rr := app.postFile("/images/form", "cat.png", "image/png", pngBytes(t), map[string]string{"title": "Cat", "description": "A cat"}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rr.Code, rr.Body.String())
	}

	var images []db.Image
	app.db.Find(&images)
	if len(images) != 1 || !strings.HasPrefix(images[0].URL, "/static/uploads/") {
		t.Fatalf("unexpected records %+v", images)
	}
	if !strings.Contains(app.get("/", false).Body.String(), "Image registered") {
		t.Fatalf("expected success notification")
	}

	app.get("/images/new", false)
	rr = app.postFile("/images/form", "notes.txt", "text/plain", []byte("hello"), map[string]string{"title": "Notes", "description": "Text"}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for wrong type, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Only PNG, JPEG and GIF files are accepted") || !strings.Contains(rr.Body.String(), `id="gallery-grid"`) {
		t.Fatalf("expected full page with format error")
	}
	if app.imageCount() != 1 {
		t.Fatalf("expected no record for rejected file")
	}
}

func TestSubmitImageFormWithoutUploadWarns(t *testing.T) {
	app := newTestApp(t, failingStore{})
	app.get("/images/new", true)

	rr := app.postFile("/images/form/upload", "cat.png", "image/png", pngBytes(t), map[string]string{"title": "Cat"}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 after failed storage, got %d", rr.Code)
	}

	rr = app.postForm("/images/form", url.Values{"title": {"Cat"}, "description": {"A cat"}}, true)
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("expected HTMX redirect, got %d %q", rr.Code, rr.Header().Get("HX-Redirect"))
	}
	if app.imageCount() != 0 {
		t.Fatalf("expected no record without a finished upload")
	}

	page := app.get("/", false).Body.String()
	if !strings.Contains(page, "Image not added") {
		t.Fatalf("expected warning notification")
	}
	if strings.Contains(page, `id="image-form-modal"`) {
		t.Fatalf("expected form to be closed")
	}
}

func TestSubmitImageFormCreatesRecord(t *testing.T) {
	app := newTestApp(t, nil)

	// 预先缓存列表页，提交成功后应当失效
	app.get("/", false)
	if app.cache.Len() == 0 {
		t.Fatalf("expected list page to be cached")
	}

	app.get("/images/new", true)
	rr := app.postFile("/images/form/upload", "cat.png", "image/png", pngBytes(t), nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `class="preview"`) {
		t.Fatalf("expected preview after upload")
	}

	rr = app.postForm("/images/form", url.Values{"title": {"Cat"}, "description": {"A cat"}}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if app.cache.Len() != 0 {
		t.Fatalf("expected cached list to be invalidated")
	}

	var images []db.Image
	app.db.Find(&images)
	if len(images) != 1 || images[0].Title != "Cat" || !strings.HasPrefix(images[0].URL, "/static/uploads/") {
		t.Fatalf("unexpected records %+v", images)
	}
	stored := strings.TrimPrefix(images[0].URL, "/static/uploads/")
	if _, err := os.Stat(app.dir + "/" + stored); err != nil {
		t.Fatalf("expected uploaded file on disk: %v", err)
	}

	page := app.get("/", false).Body.String()
	if !strings.Contains(page, "Image registered") || !strings.Contains(page, "Cat") {
		t.Fatalf("expected success notification and new tile")
	}
	if strings.Contains(page, `id="image-form-modal"`) {
		t.Fatalf("expected form to be closed")
	}
	if strings.Contains(app.get("/", false).Body.String(), "Image registered") {
		t.Fatalf("expected notification to be shown once")
	}
}

func TestUploadFormImageRejectsWrongType(t *testing.T) {
	app := newTestApp(t, nil)
	app.get("/images/new", true)

	rr := app.postFile("/images/form/upload", "notes.txt", "text/plain", []byte("hello"), nil, true)
	if !swappable(rr) {
		t.Fatalf("expected HTMX upload error to be swappable, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Only PNG, JPEG and GIF files are accepted") {
		t.Fatalf("expected format error")
	}

	rr = app.postFile("/images/form/upload", "notes.txt", "text/plain", []byte("hello"), nil, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without HTMX, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `id="gallery-grid"`) {
		t.Fatalf("expected full page without HTMX")
	}
}

func TestCancelImageFormCloses(t *testing.T) {
	app := newTestApp(t, nil)
	app.get("/images/new", true)
	app.postForm("/images/form", url.Values{"title": {"Cat"}}, true)

	if rr := app.postForm("/images/form/cancel", nil, true); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(app.get("/", false).Body.String(), `id="image-form-modal"`) {
		t.Fatalf("expected form to be closed")
	}

	rr := app.get("/images/new", true)
	if strings.Contains(rr.Body.String(), `value="Cat"`) {
		t.Fatalf("expected reopened form to be empty")
	}
}

func TestViewerShowsLatestImage(t *testing.T) {
	app := newTestApp(t, nil)

	app.postForm("/viewer/open", url.Values{"url": {"https://cdn.example.com/a.png"}}, true)
	rr := app.postForm("/viewer/open", url.Values{"url": {"https://cdn.example.com/b.png"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	page := app.get("/", false).Body.String()
	if !strings.Contains(page, `src="https://cdn.example.com/b.png"`) || strings.Contains(page, "a.png") {
		t.Fatalf("expected only the second image in the viewer")
	}
	if !strings.Contains(page, `target="_blank"`) {
		t.Fatalf("expected open original link")
	}

	app.postForm("/viewer/close", nil, true)
	if strings.Contains(app.get("/", false).Body.String(), `id="image-viewer"`) {
		t.Fatalf("expected viewer to be closed")
	}

	if rr := app.postForm("/viewer/open", url.Values{"url": {""}}, true); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty url, got %d", rr.Code)
	}
}

func TestImageAPI(t *testing.T) {
	app := newTestApp(t, nil)

	body := `{"title":"Sunset","description":"Pier","url":"https://cdn.example.com/s.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := app.do(req, false)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created db.Image
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("unexpected create response %s", rr.Body.String())
	}

	rr = app.get("/api/images", false)
	var list service.GalleryListResult
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].Title != "Sunset" {
		t.Fatalf("unexpected list %+v", list)
	}

	if rr := app.get("/api/images/"+created.ID, false); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := app.get("/api/images/missing", false); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader(`{"title":"x","description":"","url":"/a.png"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = app.do(req, false)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "fields") {
		t.Fatalf("expected field errors, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUploadImageAPI(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.postFile("/api/uploads", "cat.png", "image/png", pngBytes(t), nil, false)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var result service.UploadResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if result.ContentType != "image/png" || !strings.HasPrefix(result.URL, "/static/uploads/") {
		t.Fatalf("unexpected upload %+v", result)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", nil)
	if rr := app.do(req, false); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.get("/health", false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d: %s", rr.Code, rr.Body.String())
	}
}
