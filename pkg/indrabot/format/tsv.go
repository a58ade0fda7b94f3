package format

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// TSV renders one line per statement: compact form, English sentence,
// quoted first evidence text and its PMID.
func (r *Renderer) TSV(stmts []statements.Statement) string {
	var buf strings.Builder
	for i := range stmts {
		s := &stmts[i]
		var text, pmid string
		if ev, ok := s.FirstEvidence(); ok {
			if ev.Text != "" {
				text = `"` + ev.Text + `"`
			}
			pmid = ev.PMID
		} else {
			r.logger().Warn("statement without evidence", zap.String("hash", s.Hash), zap.String("type", s.Type))
		}
		buf.WriteString(s.String())
		buf.WriteByte('\t')
		buf.WriteString(statements.English(s))
		buf.WriteByte('\t')
		buf.WriteString(text)
		buf.WriteString("\tPMID")
		buf.WriteString(pmid)
		buf.WriteByte('\n')
	}
	return buf.String()
}
