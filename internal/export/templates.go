package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var draftTemplate = template.Must(template.New("draft").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"join": strings.Join,
}).Parse(draftTemplateHTML))

// renderDraftHTML renders the printable HTML page for a draft.
func renderDraftHTML(draft Draft) (string, error) {
	var buf bytes.Buffer
	if err := draftTemplate.Execute(&buf, draft); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const draftTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Name}}</title>
  <style>
    body { font-family: "Times New Roman", serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #555; font-size: 0.9em; margin-bottom: 2rem; }
    .abstract { font-style: italic; margin-bottom: 2rem; }
    pre.body { font-family: "Courier New", monospace; white-space: pre-wrap; }
    .comment { background: #f5f5f5; padding: 0.75rem; margin: 0.75rem 0; border-left: 3px solid #333; }
    .reply { margin-left: 1.5rem; }
    .author { font-weight: bold; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{.Name}}-{{.Revision}}
    {{- if .RFCNumber}} | RFC {{.RFCNumber}}{{end}}
    {{- if .Group}} | {{.Group}}{{end}}
    | {{join .Authors ", "}}
    | {{formatDate .PublishedAt "Jan 2, 2006"}}
  </div>
  {{if .Abstract}}<div class="abstract">{{.Abstract}}</div>{{end}}
  {{if .Body}}<pre class="body">{{.Body}}</pre>{{end}}
  {{if .Comments}}
  <h2>Discussion</h2>
  {{range .Comments}}
  <div class="comment">
    <span class="author">{{.Author}}</span> &mdash; {{formatDate .CreatedAt "Jan 2, 2006"}}
    <p>{{.Body}}</p>
    {{range .Replies}}
    <div class="comment reply">
      <span class="author">{{.Author}}</span>
      <p>{{.Body}}</p>
      {{range .Replies}}
      <div class="comment reply">
        <span class="author">{{.Author}}</span>
        <p>{{.Body}}</p>
      </div>
      {{end}}
    </div>
    {{end}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`
