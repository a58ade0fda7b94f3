// Package match maps free-text questions onto query templates.
//
// A Matcher holds an ordered table of templates. Each template is a regular
// expression anchored at the start of the sanitized question and bound to an
// Action that knows how to turn the captured entity names into a query. The
// first template that matches wins; there is no ranking. When nothing
// matches, Suggest offers the closest template by edit distance.
package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Action names the kind of query a template builds.
type Action int

const (
	Neighborhood Action = iota
	ActiveForms
	PhosActiveForms
	BinaryDirected
	BinaryUndirected
	FromSource
	ComplexOneSide
	ToTarget
)

var actionNames = map[Action]string{
	Neighborhood:     "neighborhood",
	ActiveForms:      "active_forms",
	PhosActiveForms:  "phos_active_forms",
	BinaryDirected:   "binary_directed",
	BinaryUndirected: "binary_undirected",
	FromSource:       "from_source",
	ComplexOneSide:   "complex_one_side",
	ToTarget:         "to_target",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Arity is the number of entities the action takes.
func (a Action) Arity() int {
	if a == BinaryDirected || a == BinaryUndirected {
		return 2
	}
	return 1
}

// ParseAction resolves an action by its snake_case name.
func ParseAction(name string) (Action, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// Template binds a question pattern to an action.
type Template struct {
	Source  string
	Pattern *regexp.Regexp
	Action  Action
	// Verb is the mechanism verb the template was generated for, if any.
	Verb string
	// Example is the pattern written as a question, with X and Y standing
	// in for the entities.
	Example string
}

// Match is a template together with the entity names it captured.
type Match struct {
	Template Template
	Args     []string
	Question string
}

var entityGroup = regexp.MustCompile(`\(\[\^ \]\+\)`)

// NewTemplate compiles a pattern anchored at the start of the question.
// The pattern must have exactly as many capture groups as the action
// takes entities.
func NewTemplate(pattern string, action Action, verb string) (Template, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return Template{}, fmt.Errorf("compile %q: %w", pattern, err)
	}
	if re.NumSubexp() != action.Arity() {
		return Template{}, fmt.Errorf("pattern %q has %d groups, %s needs %d",
			pattern, re.NumSubexp(), action, action.Arity())
	}
	return Template{
		Source:  pattern,
		Pattern: re,
		Action:  action,
		Verb:    verb,
		Example: exampleFor(pattern),
	}, nil
}

func mustTemplate(pattern string, action Action, verb string) Template {
	t, err := NewTemplate(pattern, action, verb)
	if err != nil {
		panic(err)
	}
	return t
}

func exampleFor(pattern string) string {
	placeholders := []string{"X", "Y"}
	n := 0
	out := entityGroup.ReplaceAllStringFunc(pattern, func(string) string {
		p := "Z"
		if n < len(placeholders) {
			p = placeholders[n]
		}
		n++
		return p
	})
	out = strings.TrimPrefix(out, "^")
	out = strings.TrimPrefix(out, ".*")
	out = strings.TrimSuffix(out, "$")
	return strings.TrimSpace(out)
}
