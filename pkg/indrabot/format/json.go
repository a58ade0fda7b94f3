package format

import (
	"encoding/json"

	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// JSONBytes renders the statements as an indented JSON array, each element
// being the statement as it was received.
func JSONBytes(stmts []statements.Statement) ([]byte, error) {
	if stmts == nil {
		stmts = []statements.Statement{}
	}
	return json.MarshalIndent(stmts, "", " ")
}
