package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TemplateSpec is a template as written in a templates file.
type TemplateSpec struct {
	Pattern string `yaml:"pattern"`
	Action  string `yaml:"action"`
	Verb    string `yaml:"verb"`
	// Example overrides the suggestion text derived from the pattern.
	Example string `yaml:"example"`
}

type templatesFile struct {
	Templates []TemplateSpec `yaml:"templates"`
}

// LoadTemplates reads extra templates from a YAML file.
// Format:
//
//	templates:
//	  - pattern: "which kinases target ([^ ]+)"
//	    action: to_target
//	    verb: phosphorylate
//	    example: which kinases target X
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]Template, 0, len(f.Templates))
	for i, spec := range f.Templates {
		action, err := ParseAction(spec.Action)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		t, err := NewTemplate(spec.Pattern, action, spec.Verb)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		if spec.Example != "" {
			t.Example = spec.Example
		}
		out = append(out, t)
	}
	return out, nil
}
