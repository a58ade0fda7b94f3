package format

import (
	"bytes"
	"html/template"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

const pubmedURL = "https://pubmed.ncbi.nlm.nih.gov/"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>IndraBot{{if .Question}}: {{.Question}}{{end}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.stmt { margin-bottom: 1em; }
.evidence { color: #555; margin-left: 1.5em; }
.count { color: #888; font-size: small; }
</style>
</head>
<body>
{{if .Question}}<h1>{{.Question}}</h1>{{end}}
<p>{{.Total}} statement{{if ne .Total 1}}s{{end}}</p>
{{range .Groups}}
<h2>{{.Type}}</h2>
{{range .Statements}}
<div class="stmt">
<b>{{.English}}</b> <span class="count">{{.Compact}}{{if .Evidence}} · {{.Evidence}} evidence{{end}}</span>
{{if .Link}}<a href="{{.Link}}">details</a>{{end}}
{{range .Evidences}}
<div class="evidence">{{.Text}}{{if .PMID}} <a href="{{.PMIDLink}}">PMID{{.PMID}}</a>{{end}}{{if .Source}} ({{.Source}}){{end}}</div>
{{end}}
</div>
{{end}}
{{end}}
</body>
</html>
`))

type htmlPage struct {
	Question string
	Total    int
	Groups   []htmlGroup
}

type htmlGroup struct {
	Type       string
	Statements []htmlStatement
}

type htmlStatement struct {
	English   string
	Compact   string
	Evidence  int
	Link      string
	Evidences []htmlEvidence
}

type htmlEvidence struct {
	Text     string
	PMID     string
	PMIDLink string
	Source   string
}

// HTML renders a standalone page with the statements grouped by type.
func (r *Renderer) HTML(a Answer) ([]byte, error) {
	page := htmlPage{Question: a.Question, Total: len(a.Statements)}

	byType := make(map[string][]htmlStatement)
	for i := range a.Statements {
		s := &a.Statements[i]
		hs := htmlStatement{
			English:  statements.English(s),
			Compact:  s.String(),
			Evidence: a.EvidenceTotals[s.Hash],
		}
		if r != nil && r.DBRestURL != "" && s.Hash != "" {
			hs.Link = strings.TrimRight(r.DBRestURL, "/") + "/statements/from_hash/" + s.Hash + "?format=html"
		}
		for _, ev := range s.Evidence {
			he := htmlEvidence{Text: StripHTML(ev.Text), PMID: ev.PMID, Source: ev.SourceAPI}
			if ev.PMID != "" {
				he.PMIDLink = pubmedURL + ev.PMID + "/"
			}
			hs.Evidences = append(hs.Evidences, he)
		}
		byType[s.Type] = append(byType[s.Type], hs)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		page.Groups = append(page.Groups, htmlGroup{Type: t, Statements: byType[t]})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StripHTML extracts the text content from an HTML fragment. Reader output
// often carries markup such as <i> or <sub> around entity names.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
