// Package statements is a read-only view of INDRA mechanism statements as
// they come back from the statement retrieval service.
package statements

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ModCondition is a post-translational modification carried by an agent.
type ModCondition struct {
	ModType    string `json:"mod_type"`
	Residue    string `json:"residue,omitempty"`
	Position   string `json:"position,omitempty"`
	IsModified *bool  `json:"is_modified,omitempty"`
}

// Modified reports whether the modification is present. A missing flag
// means modified.
func (m ModCondition) Modified() bool {
	return m.IsModified == nil || *m.IsModified
}

// ActivityCondition constrains an agent's activity.
type ActivityCondition struct {
	ActivityType string `json:"activity_type"`
	IsActive     bool   `json:"is_active"`
}

// Agent is a grounded participant of a statement.
type Agent struct {
	Name     string             `json:"name"`
	DBRefs   map[string]any     `json:"db_refs,omitempty"`
	Mods     []ModCondition     `json:"mods,omitempty"`
	Activity *ActivityCondition `json:"activity,omitempty"`
}

// Evidence is a single piece of supporting text for a statement.
type Evidence struct {
	SourceAPI string `json:"source_api,omitempty"`
	PMID      string `json:"pmid,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Statement is a mechanistic assertion between agents. Only the roles used
// by the statement's type are set.
type Statement struct {
	Type string
	ID   string
	Hash string

	Enz     *Agent
	Sub     *Agent
	Subj    *Agent
	Obj     *Agent
	Agent   *Agent
	Gef     *Agent
	Gap     *Agent
	Ras     *Agent
	Members []*Agent
	ObjFrom []*Agent
	ObjTo   []*Agent

	Residue      string
	Position     string
	Activity     string
	IsActive     bool
	FromLocation string
	ToLocation   string

	Evidence []Evidence

	// Raw is the statement exactly as it was received.
	Raw json.RawMessage
}

type wireStatement struct {
	Type         string          `json:"type"`
	ID           string          `json:"id,omitempty"`
	Hash         json.RawMessage `json:"matches_hash,omitempty"`
	Enz          *Agent          `json:"enz,omitempty"`
	Sub          *Agent          `json:"sub,omitempty"`
	Subj         *Agent          `json:"subj,omitempty"`
	Obj          *Agent          `json:"obj,omitempty"`
	Agent        *Agent          `json:"agent,omitempty"`
	Gef          *Agent          `json:"gef,omitempty"`
	Gap          *Agent          `json:"gap,omitempty"`
	Ras          *Agent          `json:"ras,omitempty"`
	Members      []*Agent        `json:"members,omitempty"`
	ObjFrom      []*Agent        `json:"obj_from,omitempty"`
	ObjTo        []*Agent        `json:"obj_to,omitempty"`
	Residue      string          `json:"residue,omitempty"`
	Position     string          `json:"position,omitempty"`
	Activity     string          `json:"activity,omitempty"`
	IsActive     bool            `json:"is_active,omitempty"`
	FromLocation string          `json:"from_location,omitempty"`
	ToLocation   string          `json:"to_location,omitempty"`
	Evidence     []Evidence      `json:"evidence,omitempty"`
}

// UnmarshalJSON decodes INDRA statement JSON and keeps the raw bytes.
func (s *Statement) UnmarshalJSON(data []byte) error {
	var w wireStatement
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == "" {
		return fmt.Errorf("statement without type")
	}
	*s = Statement{
		Type:         w.Type,
		ID:           w.ID,
		Hash:         strings.Trim(string(w.Hash), `"`),
		Enz:          w.Enz,
		Sub:          w.Sub,
		Subj:         w.Subj,
		Obj:          w.Obj,
		Agent:        w.Agent,
		Gef:          w.Gef,
		Gap:          w.Gap,
		Ras:          w.Ras,
		Members:      w.Members,
		ObjFrom:      w.ObjFrom,
		ObjTo:        w.ObjTo,
		Residue:      w.Residue,
		Position:     w.Position,
		Activity:     w.Activity,
		IsActive:     w.IsActive,
		FromLocation: w.FromLocation,
		ToLocation:   w.ToLocation,
		Evidence:     w.Evidence,
		Raw:          append(json.RawMessage(nil), bytes.TrimSpace(data)...),
	}
	return nil
}

// MarshalJSON re-emits the statement as received when possible.
func (s Statement) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	w := wireStatement{
		Type:         s.Type,
		ID:           s.ID,
		Enz:          s.Enz,
		Sub:          s.Sub,
		Subj:         s.Subj,
		Obj:          s.Obj,
		Agent:        s.Agent,
		Gef:          s.Gef,
		Gap:          s.Gap,
		Ras:          s.Ras,
		Members:      s.Members,
		ObjFrom:      s.ObjFrom,
		ObjTo:        s.ObjTo,
		Residue:      s.Residue,
		Position:     s.Position,
		Activity:     s.Activity,
		IsActive:     s.IsActive,
		FromLocation: s.FromLocation,
		ToLocation:   s.ToLocation,
		Evidence:     s.Evidence,
	}
	if s.Hash != "" {
		h, err := json.Marshal(s.Hash)
		if err != nil {
			return nil, err
		}
		w.Hash = h
	}
	return json.Marshal(w)
}

// Agents returns the statement's participants in role order. Missing roles
// are skipped.
func (s *Statement) Agents() []*Agent {
	var out []*Agent
	for _, a := range []*Agent{s.Enz, s.Subj, s.Gef, s.Gap, s.Agent, s.Sub, s.Obj, s.Ras} {
		if a != nil {
			out = append(out, a)
		}
	}
	out = append(out, nonNil(s.Members)...)
	out = append(out, nonNil(s.ObjFrom)...)
	out = append(out, nonNil(s.ObjTo)...)
	return out
}

func nonNil(agents []*Agent) []*Agent {
	out := make([]*Agent, 0, len(agents))
	for _, a := range agents {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// FirstEvidence returns the first evidence, if any.
func (s *Statement) FirstEvidence() (Evidence, bool) {
	if len(s.Evidence) == 0 {
		return Evidence{}, false
	}
	return s.Evidence[0], true
}

// HasPhosphorylation reports whether the agent carries a phosphorylation.
func HasPhosphorylation(a *Agent) bool {
	if a == nil {
		return false
	}
	for _, m := range a.Mods {
		if m.ModType == "phosphorylation" {
			return true
		}
	}
	return false
}

// IsModification reports whether the type is a post-translational
// modification with enz/sub roles.
func IsModification(stmtType string) bool {
	_, ok := modificationTypes[stmtType]
	return ok
}

var modificationTypes = map[string]struct{}{
	"Phosphorylation":       {},
	"Dephosphorylation":     {},
	"Ubiquitination":        {},
	"Deubiquitination":      {},
	"Methylation":           {},
	"Demethylation":         {},
	"Acetylation":           {},
	"Deacetylation":         {},
	"Sumoylation":           {},
	"Desumoylation":         {},
	"Hydroxylation":         {},
	"Dehydroxylation":       {},
	"Glycosylation":         {},
	"Deglycosylation":       {},
	"Farnesylation":         {},
	"Defarnesylation":       {},
	"Ribosylation":          {},
	"Deribosylation":        {},
	"Palmitoylation":        {},
	"Depalmitoylation":      {},
	"Myristoylation":        {},
	"Demyristoylation":      {},
	"Geranylgeranylation":   {},
	"Degeranylgeranylation": {},
}

// String renders the compact form, e.g. Phosphorylation(MAP2K1(), MAPK1(), T, 185).
func (s *Statement) String() string {
	var args []string
	switch {
	case IsModification(s.Type), s.Type == "Autophosphorylation", s.Type == "Transphosphorylation":
		if s.Type != "Autophosphorylation" && s.Type != "Transphosphorylation" {
			args = append(args, agentString(s.Enz), agentString(s.Sub))
		} else {
			args = append(args, agentString(s.Enz))
		}
		if s.Residue != "" {
			args = append(args, s.Residue)
		}
		if s.Position != "" {
			args = append(args, s.Position)
		}
	case s.Type == "ActiveForm":
		state := "active"
		if !s.IsActive {
			state = "inactive"
		}
		args = append(args, agentString(s.Agent), s.Activity, state)
	case s.Type == "Translocation":
		args = append(args, agentString(s.Agent))
		if s.FromLocation != "" {
			args = append(args, s.FromLocation)
		}
		if s.ToLocation != "" {
			args = append(args, s.ToLocation)
		}
	default:
		for _, a := range s.Agents() {
			args = append(args, agentString(a))
		}
	}
	return s.Type + "(" + strings.Join(args, ", ") + ")"
}

func agentString(a *Agent) string {
	if a == nil {
		return "None"
	}
	if len(a.Mods) == 0 {
		return a.Name + "()"
	}
	mods := make([]string, 0, len(a.Mods))
	for _, m := range a.Mods {
		parts := []string{m.ModType}
		if m.Residue != "" {
			parts = append(parts, m.Residue)
		}
		if m.Position != "" {
			parts = append(parts, m.Position)
		}
		mods = append(mods, "("+strings.Join(parts, ", ")+")")
	}
	return a.Name + "(mods: " + strings.Join(mods, ", ") + ")"
}
