package export

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/kenatst/docgen/internal/history"
)

// Sink accepts a rendered printable page for PDF conversion, printing or
// sharing. The actual dispatch mechanism is outside the core.
type Sink interface {
	Dispatch(ctx context.Context, title, html string) error
}

// Export renders the document as a printable page and hands it to the
// sink under the document's template title.
func Export(ctx context.Context, doc history.GeneratedDocument, sink Sink) error {
	page, err := RenderHTML(doc)
	if err != nil {
		return err
	}
	title := doc.TemplateTitle
	if title == "" {
		title = "Document"
	}
	return sink.Dispatch(ctx, title, page)
}

type pageData struct {
	SenderLines    []string
	RecipientLines []string
	DateLine       string
	SubjectLine    string
	BodyParagraphs []template.HTML
	ClosingName    string
	// SignatureURI is app-generated (percent-encoded SVG or base64
	// raster), so it is exempted from the data: URL filtering.
	SignatureURI template.URL
}

// RenderHTML lays the generated letter out as a self-contained printable
// A4 page, embedding the signature image when present.
func RenderHTML(doc history.GeneratedDocument) (string, error) {
	layout := ParseContent(doc.Content)

	data := pageData{
		SenderLines:    layout.SenderLines,
		RecipientLines: layout.RecipientLines,
		DateLine:       layout.DateLine,
		SubjectLine:    layout.SubjectLine,
		ClosingName:    layout.ClosingName,
		SignatureURI:   template.URL(doc.SignatureDataURI),
	}
	for _, paragraph := range layout.BodyParagraphs {
		escaped := template.HTMLEscapeString(paragraph)
		data.BodyParagraphs = append(data.BodyParagraphs,
			template.HTML(strings.ReplaceAll(escaped, "\n", "<br />")))
	}

	var b strings.Builder
	if err := pageTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("export: page rendering failed: %w", err)
	}
	return b.String(), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="fr">
  <head>
    <meta charset="utf-8" />
    <style>
      @page { size: A4; margin: 25mm; }
      * { box-sizing: border-box; margin: 0; padding: 0; }
      body {
        font-family: "Times New Roman", "Georgia", serif;
        color: #1a1a1a;
        font-size: 12pt;
        line-height: 1.6;
        background: #fff;
      }
      .sender { font-style: italic; font-weight: bold; line-height: 1.5; margin-bottom: 10mm; }
      .recipient { text-align: right; font-weight: bold; line-height: 1.5; margin-bottom: 10mm; }
      .date-line { font-style: italic; margin-bottom: 10mm; }
      .subject { font-weight: bold; margin-bottom: 10mm; padding-bottom: 2mm; }
      .body-paragraph { margin-bottom: 6mm; text-align: justify; }
      .closing-name { margin-top: 10mm; font-weight: bold; font-style: italic; }
      .signature-block { margin-top: 8mm; page-break-inside: avoid; }
      .signature-image { width: 50mm; max-height: 22mm; object-fit: contain; }
    </style>
  </head>
  <body>
    <main class="page">
      {{- if .SenderLines}}
      <div class="sender">{{range .SenderLines}}<div>{{.}}</div>{{end}}</div>
      {{- end}}
      {{- if .RecipientLines}}
      <div class="recipient">{{range .RecipientLines}}<div>{{.}}</div>{{end}}</div>
      {{- end}}
      {{- if .DateLine}}
      <div class="date-line">{{.DateLine}}</div>
      {{- end}}
      {{- if .SubjectLine}}
      <div class="subject">{{.SubjectLine}}</div>
      {{- end}}
      {{- range .BodyParagraphs}}
      <p class="body-paragraph">{{.}}</p>
      {{- end}}
      {{- if .ClosingName}}
      <div class="closing-name">{{.ClosingName}}</div>
      {{- end}}
      {{- if .SignatureURI}}
      <div class="signature-block"><img src="{{.SignatureURI}}" alt="Signature" class="signature-image" /></div>
      {{- end}}
    </main>
  </body>
</html>`))
