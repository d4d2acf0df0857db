package form

import (
	"strings"

	"github.com/imagegallery/internal/validation"
)

// Values holds what the user typed or picked in the add-image form.
type Values struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	File        *validation.FileInfo `json:"file,omitempty"`
}

// Upload is the transient upload state of one form: the preview shown
// locally and the hosted URL returned once the file is stored.
type Upload struct {
	LocalPreviewURL string `json:"local_preview_url,omitempty"`
	RemoteURL       string `json:"remote_url,omitempty"`
}

// Done reports whether the file has been stored and has a hosted URL.
func (u Upload) Done() bool {
	return strings.TrimSpace(u.RemoteURL) != ""
}

// Form is the add-image form together with its containing modal.
type Form struct {
	Values Values            `json:"values"`
	Upload Upload            `json:"upload"`
	Errors validation.Errors `json:"errors,omitempty"`
	Open   bool              `json:"open"`
}

// New returns an empty form whose modal is open.
func New() *Form {
	return &Form{Open: true}
}

// Validate runs the field rules and stores the result on the form.
func (f *Form) Validate() validation.Errors {
	f.Errors = validation.Validate(validation.Input{
		Title:       f.Values.Title,
		Description: f.Values.Description,
		File:        f.Values.File,
	})
	return f.Errors
}

// SetFile records the picked file and clears any previous upload.
func (f *Form) SetFile(file validation.FileInfo) {
	f.Values.File = &file
	f.Upload = Upload{}
	if msg := validation.ValidateFile(&file); msg != "" {
		f.setError(validation.FieldFile, msg)
		return
	}
	f.clearError(validation.FieldFile)
}

// SetUploaded records the result of a finished upload.
func (f *Form) SetUploaded(remoteURL, previewURL string) {
	f.Upload.RemoteURL = strings.TrimSpace(remoteURL)
	f.Upload.LocalPreviewURL = strings.TrimSpace(previewURL)
	if f.Upload.LocalPreviewURL == "" {
		f.Upload.LocalPreviewURL = f.Upload.RemoteURL
	}
}

// Reset clears the fields, the upload state and any errors. The open flag
// is left alone.
func (f *Form) Reset() {
	f.Values = Values{}
	f.Upload = Upload{}
	f.Errors = nil
}

// Close closes the containing modal. Closing twice is harmless.
func (f *Form) Close() {
	f.Open = false
}

func (f *Form) setError(field, msg string) {
	if f.Errors == nil {
		f.Errors = validation.Errors{}
	}
	f.Errors[field] = msg
}

func (f *Form) clearError(field string) {
	if f.Errors == nil {
		return
	}
	delete(f.Errors, field)
	if len(f.Errors) == 0 {
		f.Errors = nil
	}
}
