package statements

import (
	"strings"
)

// English renders a statement as a single English sentence. Types without
// a dedicated phrasing fall back to String.
func English(s *Statement) string {
	var sentence string
	switch {
	case IsModification(s.Type):
		sentence = modificationSentence(s)
	case s.Type == "Autophosphorylation":
		sentence = agentPhrase(s.Enz) + " phosphorylates itself" + siteSuffix(s.Residue, s.Position)
	case s.Type == "Transphosphorylation":
		sentence = agentPhrase(s.Enz) + " transphosphorylates itself" + siteSuffix(s.Residue, s.Position)
	case s.Type == "Activation" || s.Type == "Inhibition":
		verb := "activates"
		passive := "activated"
		if s.Type == "Inhibition" {
			verb, passive = "inhibits", "inhibited"
		}
		sentence = regulationSentence(s.Subj, s.Obj, verb, passive)
	case s.Type == "IncreaseAmount":
		sentence = amountSentence(s.Subj, s.Obj, "increases", "produced")
	case s.Type == "DecreaseAmount":
		sentence = amountSentence(s.Subj, s.Obj, "decreases", "degraded")
	case s.Type == "Complex":
		sentence = complexSentence(s.Members)
	case s.Type == "ActiveForm":
		state := "active"
		if !s.IsActive {
			state = "inactive"
		}
		sentence = agentPhrase(s.Agent) + " is " + state
	case s.Type == "Translocation":
		sentence = agentPhrase(s.Agent) + " translocates"
		if s.FromLocation != "" {
			sentence += " from the " + s.FromLocation
		}
		if s.ToLocation != "" {
			sentence += " to the " + s.ToLocation
		}
	case s.Type == "Gef":
		sentence = agentPhrase(s.Gef) + " is a GEF for " + agentPhrase(s.Ras)
	case s.Type == "Gap":
		sentence = agentPhrase(s.Gap) + " is a GAP for " + agentPhrase(s.Ras)
	case s.Type == "Conversion":
		from := joinAgents(s.ObjFrom)
		to := joinAgents(s.ObjTo)
		if s.Subj == nil {
			sentence = from + " is converted into " + to
		} else {
			sentence = agentPhrase(s.Subj) + " catalyzes the conversion of " + from + " into " + to
		}
	default:
		return s.String()
	}
	return capitalize(sentence) + "."
}

func modificationSentence(s *Statement) string {
	stem := strings.TrimSuffix(strings.ToLower(s.Type), "ion")
	site := siteSuffix(s.Residue, s.Position)
	if s.Enz == nil {
		return agentPhrase(s.Sub) + " is " + stem + "ed" + site
	}
	return agentPhrase(s.Enz) + " " + stem + "es " + agentPhrase(s.Sub) + site
}

func regulationSentence(subj, obj *Agent, verb, passive string) string {
	if subj == nil {
		return agentPhrase(obj) + " is " + passive
	}
	return agentPhrase(subj) + " " + verb + " " + agentPhrase(obj)
}

func amountSentence(subj, obj *Agent, verb, passive string) string {
	if subj == nil {
		return agentPhrase(obj) + " is " + passive
	}
	return agentPhrase(subj) + " " + verb + " the amount of " + agentPhrase(obj)
}

func complexSentence(members []*Agent) string {
	members = nonNil(members)
	switch len(members) {
	case 0:
		return "Nothing binds"
	case 1:
		return agentPhrase(members[0]) + " binds itself"
	}
	return agentPhrase(members[0]) + " binds " + joinAgents(members[1:])
}

func joinAgents(agents []*Agent) string {
	phrases := make([]string, 0, len(agents))
	for _, a := range nonNil(agents) {
		phrases = append(phrases, agentPhrase(a))
	}
	switch len(phrases) {
	case 0:
		return ""
	case 1:
		return phrases[0]
	case 2:
		return phrases[0] + " and " + phrases[1]
	}
	return strings.Join(phrases[:len(phrases)-1], ", ") + ", and " + phrases[len(phrases)-1]
}

// agentPhrase names an agent together with its modification state,
// e.g. "MAP2K1 phosphorylated on S218".
func agentPhrase(a *Agent) string {
	if a == nil {
		return "something"
	}
	var on, off []string
	for _, m := range a.Mods {
		desc := strings.TrimSuffix(m.ModType, "ion") + "ed" + siteSuffix(m.Residue, m.Position)
		if m.Modified() {
			on = append(on, desc)
		} else {
			off = append(off, "un"+desc)
		}
	}
	mods := append(on, off...)
	if len(mods) == 0 {
		return a.Name
	}
	return a.Name + " " + strings.Join(mods, " and ")
}

func siteSuffix(residue, position string) string {
	if residue == "" && position == "" {
		return ""
	}
	return " on " + residue + position
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
