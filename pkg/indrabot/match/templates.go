package match

import "fmt"

// verbTypes maps mechanism verbs to the statement type they constrain a
// query to. Verbs absent from the map leave the type open.
var verbTypes = map[string]string{
	"demethylate":     "Demethylation",
	"methylate":       "Methylation",
	"phosphorylate":   "Phosphorylation",
	"dephosphorylate": "Dephosphorylation",
	"ubiquitinate":    "Ubiquitination",
	"deubiquitinate":  "Deubiquitination",
	"activate":        "Activation",
	"inhibit":         "Inhibition",
}

// TypeForVerb returns the statement type a verb constrains to.
func TypeForVerb(verb string) (string, bool) {
	t, ok := verbTypes[verb]
	return t, ok
}

// Verbs is the ordered list of mechanism verbs that get directed templates.
var Verbs = []string{
	"affect", "regulate", "control", "target", "activate", "inhibit",
	"phosphorylate", "demethylate", "methylate", "dephosphorylate",
	"ubiquitinate", "deubiquitinate",
}

var phosEffects = []string{
	"have an effect on", "affect", "influence", "change",
	"regulate", "activate", "inhibit", "inactivate",
	"deactivate", "suppress", "downregulate",
	"upregulate", "positively affect", "negatively affect",
	"positively influence", "negatively influence", "trigger",
}

var phosSuffixes = []string{"", " activity", " activation", " function"}

var showMePrefixes = []string{
	"all the things", "all the things that", "what", "things", "things that",
}

const entity = `([^ ]+)`

// DefaultTemplates returns the built-in template table in match order.
func DefaultTemplates() []Template {
	var ts []Template
	add := func(pattern string, action Action, verb string) {
		ts = append(ts, mustTemplate(pattern, action, verb))
	}

	add("what are the targets of "+entity, FromSource, "")
	add("^"+entity+" targets$", FromSource, "")
	add("targets of "+entity, FromSource, "")

	add("what binds "+entity, ComplexOneSide, "")

	add("what mechanisms trigger "+entity, ToTarget, "")

	add("what does "+entity+" interact with", Neighborhood, "")
	add("what interacts with "+entity, Neighborhood, "")
	add(".*what do you know about "+entity, Neighborhood, "")
	add(".*what does "+entity+" do", Neighborhood, "")

	for _, effect := range phosEffects {
		for _, suffix := range phosSuffixes {
			add(fmt.Sprintf("does phosphorylation %s %s%s", effect, entity, suffix), PhosActiveForms, "")
			add(fmt.Sprintf("how does phosphorylation %s %s%s", effect, entity, suffix), PhosActiveForms, "")
		}
	}
	add("what are the active forms of "+entity, ActiveForms, "")
	add("how is "+entity+" activated", ActiveForms, "")

	add("does "+entity+" interact with "+entity, BinaryUndirected, "")
	add("how does "+entity+" interact with "+entity, BinaryUndirected, "")
	add(entity+" interacts with "+entity, BinaryUndirected, "")
	add("how "+entity+" interacts with "+entity, BinaryUndirected, "")

	for _, verb := range Verbs {
		add(fmt.Sprintf("does %s %s %s", entity, verb, entity), BinaryDirected, verb)
		add(fmt.Sprintf("how does %s %s %s", entity, verb, entity), BinaryDirected, verb)
		add(fmt.Sprintf("can %s %s %s", entity, verb, entity), BinaryDirected, verb)
		for _, prefix := range showMePrefixes {
			add(fmt.Sprintf("show me %s %s %ss", prefix, entity, verb), FromSource, verb)
		}
		add(fmt.Sprintf("what does %s %s", entity, verb), FromSource, verb)
		add(fmt.Sprintf("what %ss %s", verb, entity), ToTarget, verb)
	}

	add("what is the link between "+entity+" and "+entity, BinaryDirected, "")

	return ts
}
