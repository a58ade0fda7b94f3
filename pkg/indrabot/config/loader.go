package config

import (
	"fmt"

	"github.com/cognicore/indrabot/pkg/indrabot/ground"
	"github.com/cognicore/indrabot/pkg/indrabot/match"
)

// Loader loads the data files named in the configuration and constructs
// components
type Loader struct {
	GroundingsPath string
	TemplatesPath  string
}

// Components holds all loaded configuration components
type Components struct {
	Groundings *ground.Map
	Templates  []match.Template
}

// NewLoader creates a loader for the files named in cfg.
func NewLoader(cfg Config) Loader {
	return Loader{GroundingsPath: cfg.GroundingsPath, TemplatesPath: cfg.TemplatesPath}
}

// Load reads all data files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load grounding map
	if l.GroundingsPath != "" {
		m, err := ground.LoadMap(l.GroundingsPath)
		if err != nil {
			return nil, fmt.Errorf("load groundings: %w", err)
		}
		comp.Groundings = m
	} else {
		comp.Groundings = ground.NewMap(nil)
	}

	// Load extra templates
	if l.TemplatesPath != "" {
		tmpls, err := match.LoadTemplates(l.TemplatesPath)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		comp.Templates = tmpls
	}

	return comp, nil
}
