package server

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	// invalid marks the input named by field when it matches the page error
	"invalid": func(field, input string) string {
		if field == input {
			return "is-invalid"
		}
		return ""
	},
}

// ParseTemplate parses a page together with the shared layout from the
// embedded filesystem. The page defines the "content" block.
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), layoutTemplate, name)
}
