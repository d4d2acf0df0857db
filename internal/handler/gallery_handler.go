package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/cache"
	"github.com/imagegallery/internal/form"
	"github.com/imagegallery/internal/service"
	"github.com/imagegallery/internal/view"
)

const galleryPerPage = 12

type imagePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (p imagePayload) toInput() service.GalleryInput {
	return service.GalleryInput{
		Title:       p.Title,
		Description: p.Description,
		URL:         p.URL,
	}
}

// ShowGallery renders the gallery page with the viewer, the add-image form
// and any pending notifications.
func (a *API) ShowGallery(c *gin.Context) {
	session := sessions.Default(c)
	a.renderGalleryPage(c, http.StatusOK, session, loadForm(session))
}

// renderGalleryPage consumes queued notifications, saves the session and
// renders the full page with openForm shown when it is non-nil.
func (a *API) renderGalleryPage(c *gin.Context, status int, session sessions.Session, openForm *form.Form) {
	notifications := popNotifications(session, a.logger)
	viewer := loadViewer(session)
	if err := session.Save(); err != nil {
		c.Error(err)
	}

	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)
	result, err := a.galleries.List(c.Request.Context(), service.GalleryFilter{Page: page, PerPage: galleryPerPage})
	if err != nil {
		a.logger.WithError(err).Error("failed to list images")
		a.renderHTML(c, http.StatusInternalServerError, "gallery.html", gin.H{
			"title":         "Gallery",
			"error":         "Failed to load images, please try again later",
			"gallery":       view.Gallery{Columns: view.GalleryColumns},
			"viewer":        viewer,
			"form":          openForm,
			"notifications": notifications,
		})
		return
	}

	a.renderHTML(c, status, "gallery.html", gin.H{
		"title":         "Gallery",
		"gallery":       view.NewGallery(result.Items, result.Page, result.HasMore(), service.RenderDescription, a.now()),
		"viewer":        viewer,
		"form":          openForm,
		"notifications": notifications,
	})
}

// LoadMoreGallery returns the next tiles for infinite scroll via HTMX.
func (a *API) LoadMoreGallery(c *gin.Context) {
	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)
	if page < 2 {
		c.String(http.StatusBadRequest, "")
		return
	}

	result, err := a.galleries.List(c.Request.Context(), service.GalleryFilter{Page: page, PerPage: galleryPerPage})
	if err != nil {
		a.logger.WithError(err).Error("failed to list images")
		c.String(http.StatusInternalServerError, "")
		return
	}

	a.renderHTML(c, http.StatusOK, "gallery_items.html", gin.H{
		"gallery": view.NewGallery(result.Items, result.Page, result.HasMore(), service.RenderDescription, a.now()),
	})
}

// ListImages returns one page of images as JSON.
func (a *API) ListImages(c *gin.Context) {
	filter := service.GalleryFilter{
		Page:    parsePositiveInt(c.DefaultQuery("page", "1"), 1),
		PerPage: parsePositiveInt(c.DefaultQuery("per_page", ""), service.DefaultPerPage),
	}

	result, err := a.galleries.List(c.Request.Context(), filter)
	if err != nil {
		a.logger.WithError(err).Error("failed to list images")
		respondError(c, http.StatusInternalServerError, "failed to list images")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetImage returns a single image record.
func (a *API) GetImage(c *gin.Context) {
	item, err := a.galleries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrGalleryNotFound) {
			respondError(c, http.StatusNotFound, "image not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load image")
		return
	}

	c.JSON(http.StatusOK, item)
}

// CreateImage creates an image record and marks the cached list stale.
func (a *API) CreateImage(c *gin.Context) {
	var payload imagePayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	item, err := a.galleries.Create(c.Request.Context(), payload.toInput())
	if err != nil {
		if respondValidation(c, err) {
			return
		}
		switch {
		case errors.Is(err, service.ErrGalleryImageMissing):
			respondError(c, http.StatusBadRequest, "image url is required")
		case errors.Is(err, service.ErrGalleryImageInvalid):
			respondError(c, http.StatusBadRequest, "image url is invalid")
		default:
			a.logger.WithError(err).Error("failed to create image")
			respondError(c, http.StatusInternalServerError, "failed to create image")
		}
		return
	}

	if err := a.galleries.InvalidateQueries(c.Request.Context(), cache.ImagesKey); err != nil {
		a.logger.WithError(err).Warn("failed to invalidate image list")
	}
	c.JSON(http.StatusCreated, item)
}
