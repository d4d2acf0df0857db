package service

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	descriptionMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)
	descriptionPolicy = buildDescriptionPolicy()
)

// 描述只允许行内格式，段落等块级标签会被剥离
func buildDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("em", "strong", "code", "del")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderDescription renders an image description as sanitized inline HTML.
func RenderDescription(description string) template.HTML {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := descriptionMarkdown.Convert([]byte(description), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(description))
	}
	return template.HTML(strings.TrimSpace(descriptionPolicy.Sanitize(buf.String())))
}
