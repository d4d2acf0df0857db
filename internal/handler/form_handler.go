package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/form"
	"github.com/imagegallery/internal/validation"
	log "github.com/sirupsen/logrus"
)

// ShowImageForm opens the add-image modal with an empty form.
func (a *API) ShowImageForm(c *gin.Context) {
	session := sessions.Default(c)
	f := form.New()
	saveForm(session, f)
	if err := session.Save(); err != nil {
		c.Error(err)
	}

	if !isHTMX(c) {
		redirectHome(c)
		return
	}
	a.renderHTML(c, http.StatusOK, "image_form.html", gin.H{"form": f})
}

// CancelImageForm discards the form and closes the modal.
func (a *API) CancelImageForm(c *gin.Context) {
	session := sessions.Default(c)
	if f := loadForm(session); f != nil {
		f.Reset()
		f.Close()
		saveForm(session, f)
	}
	if err := session.Save(); err != nil {
		c.Error(err)
	}

	if isHTMX(c) {
		c.String(http.StatusOK, "")
		return
	}
	redirectHome(c)
}

// SubmitImageForm runs the add-image submission. Field errors re-render the
// form; every other outcome closes it and goes back to the gallery.
// Without HTMX the file arrives in the same request and is uploaded first.
func (a *API) SubmitImageForm(c *gin.Context) {
	session := sessions.Default(c)
	f := loadForm(session)
	if f == nil {
		f = form.New()
	}
	f.Values.Title = c.PostForm("title")
	f.Values.Description = c.PostForm("description")

	if !isHTMX(c) {
		if file, err := c.FormFile(validation.FieldFile); err == nil {
			if status := a.uploadFormFile(c, f, file); status != http.StatusOK {
				saveForm(session, f)
				a.renderForm(c, status, session, f)
				return
			}
		}
	}

	submitter := form.NewSubmitter(a.galleries, a.galleries, sessionNotifier{session: session}, a.logger)
	outcome, err := submitter.Submit(c.Request.Context(), f)
	a.logger.WithFields(log.Fields{"outcome": outcome.String()}).WithError(err).Debug("image form submitted")

	saveForm(session, f)
	if outcome == form.OutcomeInvalid {
		a.renderForm(c, http.StatusUnprocessableEntity, session, f)
		return
	}

	if saveErr := session.Save(); saveErr != nil {
		c.Error(saveErr)
	}
	redirectHome(c)
}

// renderForm saves the session and shows f. HTMX only swaps 2xx responses,
// so field errors go out as 200 there; full page loads keep status.
func (a *API) renderForm(c *gin.Context, status int, session sessions.Session, f *form.Form) {
	if !isHTMX(c) {
		a.renderGalleryPage(c, status, session, f)
		return
	}

	if err := session.Save(); err != nil {
		c.Error(err)
	}
	if status == http.StatusUnprocessableEntity {
		status = http.StatusOK
	}
	a.renderHTML(c, status, "image_form.html", gin.H{"form": f})
}
