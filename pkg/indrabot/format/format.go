// Package format renders statement answers as chat snippets and files.
package format

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// Format is an output format selected with a trailing /<fmt> modifier.
type Format string

const (
	TSV  Format = "tsv"
	JSON Format = "json"
	HTML Format = "html"
	PDF  Format = "pdf"
	DOT  Format = "dot"
)

// Default is used when a message carries no modifier.
const Default = TSV

var formats = []Format{TSV, JSON, HTML, PDF, DOT}

// Parse returns the named format.
func Parse(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default, nil
	}
	for _, f := range formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q", internalerr.ErrInvalidInput, name)
}

// ParseModifier strips a trailing format modifier such as "/json" from msg.
// Messages without one get the default format.
func ParseModifier(msg string) (Format, string) {
	for _, f := range formats {
		suffix := "/" + string(f)
		if strings.HasSuffix(msg, suffix) {
			return f, strings.TrimSpace(strings.TrimSuffix(msg, suffix))
		}
	}
	return Default, msg
}

// Inline reports whether the format is text that can be posted as a snippet.
func (f Format) Inline() bool {
	return f == TSV || f == JSON || f == DOT
}

// ContentType is the MIME type of the rendered format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case HTML:
		return "text/html; charset=utf-8"
	case PDF:
		return "application/pdf"
	case DOT:
		return "text/vnd.graphviz"
	}
	return "text/tab-separated-values; charset=utf-8"
}

// Answer is the material every renderer works from.
type Answer struct {
	Question       string
	Statements     []statements.Statement
	EvidenceTotals map[string]int
}

// Artifact is a rendered answer ready for upload.
type Artifact struct {
	Filename string
	Filetype string
	Content  []byte
}

// Renderer renders answers. The zero value is usable.
type Renderer struct {
	// DotPath is the Graphviz binary used for PDF output.
	DotPath string
	// DBRestURL, when set, links statements in HTML pages back to the
	// retrieval service.
	DBRestURL string
	Logger    *zap.Logger
}

// Render renders a in format f.
func (r *Renderer) Render(ctx context.Context, f Format, a Answer) (Artifact, error) {
	var (
		content []byte
		err     error
	)
	switch f {
	case TSV:
		content = []byte(r.TSV(a.Statements))
	case JSON:
		content, err = JSONBytes(a.Statements)
	case HTML:
		content, err = r.HTML(a)
	case DOT:
		content = []byte(Dot(a.Statements))
	case PDF:
		content, err = r.PDF(ctx, a.Statements)
	default:
		return Artifact{}, fmt.Errorf("%w: unknown format %q", internalerr.ErrInvalidInput, f)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", f, err)
	}
	return Artifact{
		Filename: "indrabot." + string(f),
		Filetype: string(f),
		Content:  content,
	}, nil
}

func (r *Renderer) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
