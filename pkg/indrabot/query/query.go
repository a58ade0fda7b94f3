// Package query turns matched questions into statement queries.
package query

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/indrabot/pkg/indrabot/ground"
	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/match"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// Query constrains a statement lookup. Agent keys have the form ID@NS.
type Query struct {
	Agents  []string `json:"agents,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Object  string   `json:"object,omitempty"`
	Type    string   `json:"type,omitempty"`
	// PhosphoOnly keeps only statements whose agent is phosphorylated.
	PhosphoOnly bool `json:"phospho_only,omitempty"`
}

// Empty reports whether the query constrains no agent.
func (q Query) Empty() bool {
	return len(q.Agents) == 0 && q.Subject == "" && q.Object == ""
}

func (q Query) String() string {
	var parts []string
	if q.Subject != "" {
		parts = append(parts, "subject="+q.Subject)
	}
	if q.Object != "" {
		parts = append(parts, "object="+q.Object)
	}
	if len(q.Agents) > 0 {
		parts = append(parts, "agents="+strings.Join(q.Agents, ","))
	}
	if q.Type != "" {
		parts = append(parts, "type="+q.Type)
	}
	if q.PhosphoOnly {
		parts = append(parts, "phospho_only")
	}
	return strings.Join(parts, " ")
}

// Filter applies the constraints the retrieval service cannot express.
// Statements are kept in order and never duplicated.
func (q Query) Filter(stmts []statements.Statement) []statements.Statement {
	if !q.PhosphoOnly {
		return stmts
	}
	out := make([]statements.Statement, 0, len(stmts))
	for _, s := range stmts {
		if s.Type == "ActiveForm" && statements.HasPhosphorylation(s.Agent) {
			out = append(out, s)
		}
	}
	return out
}

// Builder grounds entity names and builds queries.
type Builder struct {
	grounder ground.Grounder
}

// NewBuilder creates a builder backed by a grounder.
func NewBuilder(g ground.Grounder) *Builder {
	return &Builder{grounder: g}
}

// Build dispatches a match to its action.
func (b *Builder) Build(ctx context.Context, m match.Match) (Query, error) {
	t := m.Template
	if len(m.Args) != t.Action.Arity() {
		return Query{}, fmt.Errorf("%w: %s takes %d entities, got %d",
			internalerr.ErrInvalidInput, t.Action, t.Action.Arity(), len(m.Args))
	}
	switch t.Action {
	case match.Neighborhood:
		return b.Neighborhood(ctx, m.Args[0])
	case match.ActiveForms:
		return b.ActiveForms(ctx, m.Args[0])
	case match.PhosActiveForms:
		return b.PhosActiveForms(ctx, m.Args[0])
	case match.BinaryDirected:
		return b.BinaryDirected(ctx, m.Args[0], m.Args[1], t.Verb)
	case match.BinaryUndirected:
		return b.BinaryUndirected(ctx, m.Args[0], m.Args[1])
	case match.FromSource:
		return b.FromSource(ctx, m.Args[0], t.Verb)
	case match.ComplexOneSide:
		return b.ComplexOneSide(ctx, m.Args[0])
	case match.ToTarget:
		return b.ToTarget(ctx, m.Args[0], t.Verb)
	}
	return Query{}, fmt.Errorf("%w: unsupported action %s", internalerr.ErrInvalidInput, t.Action)
}

// Neighborhood finds every statement involving the entity.
func (b *Builder) Neighborhood(ctx context.Context, entity string) (Query, error) {
	key, err := b.key(ctx, entity)
	if err != nil {
		return Query{}, err
	}
	return Query{Agents: []string{key}}, nil
}

// ActiveForms finds the entity's active forms.
func (b *Builder) ActiveForms(ctx context.Context, entity string) (Query, error) {
	key, err := b.key(ctx, entity)
	if err != nil {
		return Query{}, err
	}
	return Query{Agents: []string{key}, Type: "ActiveForm"}, nil
}

// PhosActiveForms finds active forms that depend on phosphorylation.
func (b *Builder) PhosActiveForms(ctx context.Context, entity string) (Query, error) {
	q, err := b.ActiveForms(ctx, entity)
	if err != nil {
		return Query{}, err
	}
	q.PhosphoOnly = true
	return q, nil
}

// BinaryDirected finds statements from the first entity to the second.
func (b *Builder) BinaryDirected(ctx context.Context, subj, obj, verb string) (Query, error) {
	k1, k2, err := b.keyPair(ctx, subj, obj)
	if err != nil {
		return Query{}, err
	}
	typ, _ := match.TypeForVerb(verb)
	return Query{Subject: k1, Object: k2, Type: typ}, nil
}

// BinaryUndirected finds statements involving both entities.
func (b *Builder) BinaryUndirected(ctx context.Context, e1, e2 string) (Query, error) {
	k1, k2, err := b.keyPair(ctx, e1, e2)
	if err != nil {
		return Query{}, err
	}
	return Query{Agents: []string{k1, k2}}, nil
}

// FromSource finds statements where the entity is upstream.
func (b *Builder) FromSource(ctx context.Context, entity, verb string) (Query, error) {
	key, err := b.key(ctx, entity)
	if err != nil {
		return Query{}, err
	}
	typ, _ := match.TypeForVerb(verb)
	return Query{Subject: key, Type: typ}, nil
}

// ComplexOneSide finds complexes the entity is part of.
func (b *Builder) ComplexOneSide(ctx context.Context, entity string) (Query, error) {
	key, err := b.key(ctx, entity)
	if err != nil {
		return Query{}, err
	}
	return Query{Agents: []string{key}, Type: "Complex"}, nil
}

// ToTarget finds statements where the entity is downstream.
func (b *Builder) ToTarget(ctx context.Context, entity, verb string) (Query, error) {
	key, err := b.key(ctx, entity)
	if err != nil {
		return Query{}, err
	}
	typ, _ := match.TypeForVerb(verb)
	return Query{Object: key, Type: typ}, nil
}

func (b *Builder) key(ctx context.Context, entity string) (string, error) {
	if strings.TrimSpace(entity) == "" {
		return "", fmt.Errorf("%w: empty entity name", internalerr.ErrInvalidInput)
	}
	g, err := b.grounder.Ground(ctx, entity)
	if err != nil {
		return "", fmt.Errorf("ground %q: %w", entity, err)
	}
	return g.Key(), nil
}

// keyPair grounds two entities concurrently.
func (b *Builder) keyPair(ctx context.Context, e1, e2 string) (string, string, error) {
	var k1, k2 string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		k1, err = b.key(gctx, e1)
		return err
	})
	g.Go(func() error {
		var err error
		k2, err = b.key(gctx, e2)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return k1, k2, nil
}
