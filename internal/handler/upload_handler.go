package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/form"
	"github.com/imagegallery/internal/service"
	"github.com/imagegallery/internal/validation"
)

// UploadImage 处理图片上传请求，返回托管后的 URL
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile(validation.FieldFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image file found in request", "fields": validation.Errors{validation.FieldFile: validation.MsgFileRequired}})
		return
	}

	result, err := a.uploads.Upload(c.Request.Context(), file)
	if err != nil {
		if respondValidation(c, err) {
			return
		}
		a.logger.WithError(err).Error("upload failed")
		respondError(c, http.StatusInternalServerError, "failed to save file")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// UploadFormImage uploads the file picked in the open add-image form and
// keeps the hosted URL as the form's upload state.
func (a *API) UploadFormImage(c *gin.Context) {
	session := sessions.Default(c)
	f := loadForm(session)
	if f == nil {
		f = form.New()
	}
	if title, ok := c.GetPostForm("title"); ok {
		f.Values.Title = title
	}
	if description, ok := c.GetPostForm("description"); ok {
		f.Values.Description = description
	}

	status := http.StatusUnprocessableEntity
	if file, err := c.FormFile(validation.FieldFile); err == nil {
		status = a.uploadFormFile(c, f, file)
	} else {
		f.Values.File = nil
		f.Upload = form.Upload{}
		f.Errors = validation.Errors{validation.FieldFile: validation.MsgFileRequired}
	}

	saveForm(session, f)
	a.renderForm(c, status, session, f)
}

// uploadFormFile records file on f and stores it. It returns 422 when the
// file breaks a field rule and 200 otherwise.
func (a *API) uploadFormFile(c *gin.Context, f *form.Form, file *multipart.FileHeader) int {
	f.SetFile(service.FileInfo(file))
	if f.Errors.Has(validation.FieldFile) {
		return http.StatusUnprocessableEntity
	}

	result, err := a.uploads.Upload(c.Request.Context(), file)
	var verrs validation.Errors
	switch {
	case err == nil:
		f.SetUploaded(result.URL, result.URL)
	case errors.As(err, &verrs):
		for field, msg := range verrs {
			f.Errors = setFieldError(f.Errors, field, msg)
		}
		return http.StatusUnprocessableEntity
	default:
		// 上传失败时保留文件信息但不设置远程地址，提交时会给出警告
		a.logger.WithError(err).Error("form upload failed")
	}
	return http.StatusOK
}

func setFieldError(errs validation.Errors, field, msg string) validation.Errors {
	if errs == nil {
		errs = validation.Errors{}
	}
	errs[field] = msg
	return errs
}
