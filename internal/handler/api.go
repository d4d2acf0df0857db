package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/service"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultSiteName = "Gallery"

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	galleries *service.GalleryService
	uploads   *service.UploadService
	logger    log.FieldLogger
	siteName  string
	now       func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, galleries *service.GalleryService, uploads *service.UploadService, logger log.FieldLogger) *API {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &API{
		db:        db,
		galleries: galleries,
		uploads:   uploads,
		logger:    logger,
		siteName:  defaultSiteName,
		now:       time.Now,
	}
}

// SetSiteName changes the title shown in page headers.
func (a *API) SetSiteName(name string) {
	if name != "" {
		a.siteName = name
	}
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}
	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = a.siteName
	}
	if _, exists := payload["year"]; !exists {
		payload["year"] = a.now().Year()
	}
	c.HTML(status, template, payload)
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirectHome sends the browser back to the gallery, through HTMX when the
// request came from it.
func redirectHome(c *gin.Context) {
	if isHTMX(c) {
		c.Header("HX-Redirect", "/")
		c.Status(200)
		return
	}
	c.Redirect(303, "/")
}
