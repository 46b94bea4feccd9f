// Package registry declares the ordered step catalogue of every wizard flow
// and maps step keys to their typed payloads.
package registry

import (
	_ "embed"
	"fmt"

	"github.com/ad/go-scholar-wizard/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// PlaceholderLabel is shown for step keys that are not in the catalogue.
const PlaceholderLabel = "Not implemented"

type Field struct {
	Name     string           `yaml:"name"`
	Kind     models.FieldKind `yaml:"kind"`
	Required bool             `yaml:"required"`
	Hint     string           `yaml:"hint"`
}

type Step struct {
	Key         models.StepKey `yaml:"key"`
	Label       string         `yaml:"label"`
	Fields      []Field        `yaml:"fields"`
	Placeholder bool           `yaml:"-"`
}

func (s Step) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FileBearing reports whether the step has at least one file field.
func (s Step) FileBearing() bool {
	for _, f := range s.Fields {
		if f.Kind == models.FieldFile {
			return true
		}
	}
	return false
}

type Registry struct {
	flows map[models.Flow][]Step
}

// Load parses the embedded catalogue.
func Load() (*Registry, error) {
	return Parse(catalogYAML)
}

func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

func Parse(data []byte) (*Registry, error) {
	var raw map[models.Flow][]Step
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse step catalogue: %w", err)
	}

	r := &Registry{flows: make(map[models.Flow][]Step, len(raw))}
	for flow, steps := range raw {
		seen := make(map[models.StepKey]bool, len(steps))
		for _, s := range steps {
			if s.Key == "" {
				return nil, fmt.Errorf("flow %s: step without key", flow)
			}
			if seen[s.Key] {
				return nil, fmt.Errorf("flow %s: duplicate step %s", flow, s.Key)
			}
			seen[s.Key] = true
			for _, f := range s.Fields {
				switch f.Kind {
				case models.FieldText, models.FieldNumber, models.FieldBool, models.FieldList, models.FieldFile:
				default:
					return nil, fmt.Errorf("flow %s step %s: field %s has unknown kind %q", flow, s.Key, f.Name, f.Kind)
				}
			}
		}
		r.flows[flow] = steps
	}
	return r, nil
}

// Steps returns the full ordered catalogue of a flow.
func (r *Registry) Steps(flow models.Flow) []Step {
	return append([]Step(nil), r.flows[flow]...)
}

func (r *Registry) Keys(flow models.Flow) []models.StepKey {
	steps := r.flows[flow]
	keys := make([]models.StepKey, 0, len(steps))
	for _, s := range steps {
		keys = append(keys, s.Key)
	}
	return keys
}

// ScholarshipKeys returns the scholarship steps that apply for the given
// selection method: the documents step exists only for self-selection.
func (r *Registry) ScholarshipKeys(method models.SelectionMethod) []models.StepKey {
	keys := r.Keys(models.FlowScholarship)
	if method == models.SelectionSelf {
		return keys
	}
	out := keys[:0]
	for _, k := range keys {
		if k != models.StepDocuments {
			out = append(out, k)
		}
	}
	return out
}

func (r *Registry) Has(flow models.Flow, key models.StepKey) bool {
	for _, s := range r.flows[flow] {
		if s.Key == key {
			return true
		}
	}
	return false
}

// Lookup never fails: unknown keys yield a placeholder step without fields.
func (r *Registry) Lookup(flow models.Flow, key models.StepKey) Step {
	for _, s := range r.flows[flow] {
		if s.Key == key {
			return s
		}
	}
	return Step{Key: key, Label: PlaceholderLabel, Placeholder: true}
}
