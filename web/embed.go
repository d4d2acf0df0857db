package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed template/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// Templates parses every page and fragment template with funcs available.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFiles, "template/*.html")
}

// StaticFS serves the embedded assets below static/.
func StaticFS() http.FileSystem {
	fsys, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}
