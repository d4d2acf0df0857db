package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// OpenViewer shows url in the image viewer, replacing any image already shown.
func (a *API) OpenViewer(c *gin.Context) {
	url := c.PostForm("url")
	if url == "" {
		respondError(c, http.StatusBadRequest, "url is required")
		return
	}

	session := sessions.Default(c)
	viewer := loadViewer(session)
	viewer.Open(url)
	saveViewer(session, viewer)
	if err := session.Save(); err != nil {
		c.Error(err)
	}

	if !isHTMX(c) {
		redirectHome(c)
		return
	}
	a.renderHTML(c, http.StatusOK, "image_viewer.html", gin.H{"viewer": viewer})
}

// CloseViewer hides the image viewer.
func (a *API) CloseViewer(c *gin.Context) {
	session := sessions.Default(c)
	viewer := loadViewer(session)
	viewer.Close()
	saveViewer(session, viewer)
	if err := session.Save(); err != nil {
		c.Error(err)
	}

	if !isHTMX(c) {
		redirectHome(c)
		return
	}
	a.renderHTML(c, http.StatusOK, "image_viewer.html", gin.H{"viewer": viewer})
}
