package format

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// Dot renders the statements as a Graphviz digraph. Agents are nodes and
// each statement contributes labelled edges between its participants.
func Dot(stmts []statements.Statement) string {
	var (
		nodes []string
		seen  = map[string]bool{}
		edges []string
	)
	node := func(a *statements.Agent) string {
		if a == nil || a.Name == "" {
			return ""
		}
		if !seen[a.Name] {
			seen[a.Name] = true
			nodes = append(nodes, a.Name)
		}
		return a.Name
	}
	edge := func(from, to *statements.Agent, label, attrs string) {
		f, t := node(from), node(to)
		if f == "" || t == "" {
			return
		}
		e := fmt.Sprintf("  %s -> %s [label=%s", dotQuote(f), dotQuote(t), dotQuote(label))
		if attrs != "" {
			e += ", " + attrs
		}
		edges = append(edges, e+"];")
	}

	for i := range stmts {
		s := &stmts[i]
		switch {
		case statements.IsModification(s.Type):
			edge(s.Enz, s.Sub, s.Type, "")
		case s.Type == "Activation", s.Type == "IncreaseAmount":
			edge(s.Subj, s.Obj, s.Type, `color="#039b13"`)
		case s.Type == "Inhibition", s.Type == "DecreaseAmount":
			edge(s.Subj, s.Obj, s.Type, `color="#e20000", arrowhead=tee`)
		case s.Type == "Complex":
			for j := 0; j+1 < len(s.Members); j++ {
				for k := j + 1; k < len(s.Members); k++ {
					edge(s.Members[j], s.Members[k], "Complex", "dir=none")
				}
			}
		case s.Type == "Gef":
			edge(s.Gef, s.Ras, s.Type, "")
		case s.Type == "Gap":
			edge(s.Gap, s.Ras, s.Type, "")
		default:
			for _, a := range s.Agents() {
				node(a)
			}
		}
	}

	var buf strings.Builder
	buf.WriteString("digraph indrabot {\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=\"#ffffcc\", fontname=Helvetica];\n")
	for _, n := range nodes {
		buf.WriteString("  " + dotQuote(n) + ";\n")
	}
	for _, e := range edges {
		buf.WriteString(e + "\n")
	}
	buf.WriteString("}\n")
	return buf.String()
}

// PDF renders the statement graph through the Graphviz dot binary.
func (r *Renderer) PDF(ctx context.Context, stmts []statements.Statement) ([]byte, error) {
	bin := "dot"
	if r != nil && r.DotPath != "" {
		bin = r.DotPath
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: graphviz not available: %v", internalerr.ErrUnavailable, err)
	}

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-Tpdf")
	cmd.Stdin = strings.NewReader(Dot(stmts))
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("dot: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// dotQuote quotes s as a DOT string. Only backslash and double quote need
// escaping; other runes are written as is.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
