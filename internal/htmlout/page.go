package htmlout

import (
	"html/template"
	"io"

	"github.com/keithlinneman/docsite/internal/xerrors"
)

// Page is the data for the site layout: a rendered document body plus
// the chrome around it.
type Page struct {
	Title       string
	Description string
	SiteName    string

	// Body is rendered document markup. Trusted: it comes from
	// WriteHTML over the renderer pipeline, never from user input.
	Body template.HTML

	Nav []NavItem
}

// NavItem is one entry in the site navigation.
type NavItem struct {
	Title  string
	Path   string
	Active bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Title}}{{.Title}} - {{end}}{{.SiteName}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
<link rel="stylesheet" href="/assets/site.css">
</head>
<body>
<header>
<nav>
<a class="site-name" href="/">{{.SiteName}}</a>
<ul>
{{- range .Nav}}
<li{{if .Active}} class="active"{{end}}><a href="{{.Path}}">{{.Title}}</a></li>
{{- end}}
</ul>
</nav>
</header>
<main>
{{.Body}}
</main>
</body>
</html>
`))

// WritePage writes the full HTML page for p.
func WritePage(w io.Writer, p Page) error {
	if p.SiteName == "" {
		p.SiteName = "docs"
	}
	if err := pageTemplate.Execute(w, p); err != nil {
		return xerrors.Wrap(err, "execute page template")
	}
	return nil
}
