package view

import (
	"bytes"
	"html/template"
)

// LinkvertiseCSP allows the Linkvertise publisher script on the interstitial.
const LinkvertiseCSP = "default-src 'self'; script-src 'self' 'unsafe-inline' 'unsafe-eval' https://publisher.linkvertise.com; style-src 'self' 'unsafe-inline';"

// Page variants select the accent color of an outcome page.
const (
	VariantSuccess = "success"
	VariantWarning = "warning"
	VariantError   = "error"
)

// OutcomePageData is the content of a start or earn result page.
type OutcomePageData struct {
	Lang      string
	Title     string
	Message   string
	Detail    string
	Variant   string
	BackLabel string
	BackURL   string
}

// LinkvertisePageData is the content of the Linkvertise interstitial.
type LinkvertisePageData struct {
	Lang          string
	Title         string
	Message       string
	ContinueLabel string
	ContinueURL   string
	BackLabel     string
	BackURL       string
	PublisherID   int
}

const pageStyle = `
	<style>
		:root {
			--bg: #111827;
			--text: #ffffff;
			--muted: #9ca3af;
			--accent: #4f46e5;
			--accent-hover: #4338ca;
			--success: #10b981;
			--warning: #f59e0b;
			--error: #ef4444;
			font-family: system-ui, -apple-system, "Segoe UI", sans-serif;
		}
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background-color: var(--bg);
		}
		.container {
			text-align: center;
			width: min(560px, 92vw);
		}
		h1 {
			color: var(--text);
			font-size: 1.875rem;
			font-weight: bold;
			margin-bottom: 1.5rem;
		}
		.success h1 { color: var(--success); }
		.warning h1 { color: var(--warning); }
		.error h1 { color: var(--error); }
		p {
			color: var(--muted);
			margin-bottom: 2rem;
		}
		.button {
			display: inline-block;
			margin: 0.5rem;
			padding: 0.75rem 1.5rem;
			border-radius: 0.5rem;
			background-color: var(--accent);
			color: var(--text);
			font-weight: bold;
			text-decoration: none;
			transition: background-color 0.2s;
		}
		.button:hover { background-color: var(--accent-hover); }
		.button.btn-back { background-color: #6b7280; }
		.button.btn-back:hover { background-color: #4b5563; }
	</style>`

var outcomePageTmpl = template.Must(template.New("outcome_page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.Title}}</title>` + pageStyle + `
</head>
<body>
	<div class="container {{.Variant}}">
		<h1>{{.Title}}</h1>
		<p>{{.Message}}</p>
		{{if .Detail}}<p>{{.Detail}}</p>{{end}}
		<a href="{{.BackURL}}" class="button btn-back" onclick="window.close(); return false;">{{.BackLabel}}</a>
	</div>
</body>
</html>
`))

var linkvertisePageTmpl = template.Must(template.New("linkvertise_page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.Title}}</title>` + pageStyle + `
</head>
<body>
	<div class="container">
		<h1>{{.Title}}</h1>
		<p>{{.Message}}</p>
		<a href="{{.ContinueURL}}" class="button">{{.ContinueLabel}}</a>
		<a href="{{.BackURL}}" class="button btn-back" onclick="window.close(); return false;">{{.BackLabel}}</a>
		<script src="https://publisher.linkvertise.com/cdn/linkvertise.js"></script>
		<script>linkvertise({{.PublisherID}}, { whitelist: [], blacklist: [] });</script>
	</div>
</body>
</html>
`))

// RenderOutcomePage expands the outcome page template.
func RenderOutcomePage(data OutcomePageData) (string, error) {
	if data.Variant == "" {
		data.Variant = VariantError
	}
	if data.BackURL == "" {
		data.BackURL = "/"
	}
	if data.Lang == "" {
		data.Lang = "en"
	}
	var buf bytes.Buffer
	if err := outcomePageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderLinkvertisePage expands the Linkvertise interstitial template.
func RenderLinkvertisePage(data LinkvertisePageData) (string, error) {
	if data.BackURL == "" {
		data.BackURL = "/"
	}
	if data.Lang == "" {
		data.Lang = "en"
	}
	var buf bytes.Buffer
	if err := linkvertisePageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
