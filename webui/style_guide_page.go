package webui

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"diagramgen/agents"
)

// TextSource supplies markdown text.
type TextSource interface {
	Text() (string, error)
}

var _ TextSource = (*agents.StyleGuide)(nil)

var stylePageTemplate = template.Must(template.New("style").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Style guide</title>
  <link rel="stylesheet" href="/static/css/app.css">
</head>
<body>
  <main class="style-guide">{{.}}</main>
</body>
</html>
`))

// MarkdownToHTML renders md with goldmark's CommonMark defaults.
func MarkdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StyleGuideHandler renders the style guide the Stylist reads, so the page
// always matches what the pipeline applies.
func StyleGuideHandler(guide TextSource, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		md, err := guide.Text()
		if err != nil {
			logger.Error("Failed to read style guide", zap.Error(err))
			http.Error(w, "style guide unavailable", http.StatusInternalServerError)
			return
		}
		body, err := MarkdownToHTML(md)
		if err != nil {
			logger.Error("Failed to render style guide", zap.Error(err))
			http.Error(w, "style guide unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		// the guide is a local operator-owned file
		if err := stylePageTemplate.Execute(w, template.HTML(body)); err != nil {
			logger.Warn("Failed to write style guide page", zap.Error(err))
		}
	}
}
