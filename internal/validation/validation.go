package validation

import (
	"mime"
	"sort"
	"strings"
	"unicode/utf8"
)

// FileInfo describes a file picked for upload, before or after it is stored.
type FileInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Input carries the fields of the add-image form.
type Input struct {
	Title       string
	Description string
	File        *FileInfo
}

// Errors maps a field name to the first rule it violated.
type Errors map[string]string

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation passed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed validation.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Validate applies every field rule and returns the failures, or nil.
func Validate(input Input) Errors {
	errs := Errors{}
	if msg := ValidateFile(input.File); msg != "" {
		errs[FieldFile] = msg
	}
	if msg := ValidateTitle(input.Title); msg != "" {
		errs[FieldTitle] = msg
	}
	if msg := ValidateDescription(input.Description); msg != "" {
		errs[FieldDescription] = msg
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateFile returns the message of the first file rule that fails.
func ValidateFile(file *FileInfo) string {
	if file == nil {
		return MsgFileRequired
	}
	if file.Size >= MaxFileSizeBytes {
		return MsgFileTooLarge
	}
	if !AcceptedContentType(file.ContentType) {
		return MsgFileFormat
	}
	return ""
}

// ValidateTitle checks presence and rune length of a title.
func ValidateTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return MsgTitleRequired
	}
	n := utf8.RuneCountInString(title)
	if n < TitleMinLength {
		return MsgTitleTooShort
	}
	if n > TitleMaxLength {
		return MsgTitleTooLong
	}
	return ""
}

// ValidateDescription checks presence and rune length of a description.
func ValidateDescription(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return MsgDescriptionRequired
	}
	if utf8.RuneCountInString(description) > DescriptionMaxLength {
		return MsgDescriptionTooLong
	}
	return ""
}

// AcceptedContentType reports whether contentType is png, jpeg or gif.
// Media type parameters such as charset are ignored.
func AcceptedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return false
	}
	for _, accepted := range AcceptedContentTypes {
		if mediaType == accepted {
			return true
		}
	}
	return false
}
