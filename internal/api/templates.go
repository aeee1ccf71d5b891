package api

import (
	"embed"
	"fmt"
	"html/template"
	"strconv"
)

// templateFS contains the HTML templates bundled with the binary.
//
//go:embed templates/*
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"stars": formatStars,
	}).ParseFS(templateFS, "templates/page.gohtml", "templates/index.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// formatStars renders a star count for the header badge. Counts of a
// thousand or more are shortened to one decimal, as in 1.2k.
func formatStars(v *int) string {
	if v == nil {
		return ""
	}
	n := *v
	if n < 1000 {
		return strconv.Itoa(n)
	}
	return strconv.FormatFloat(float64(n)/1000, 'f', 1, 64) + "k"
}
