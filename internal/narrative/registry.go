package narrative

import (
	"fmt"
	"strings"
)

// Template is one parameterized narrative pattern. Templates are immutable
// configuration: build a Registry once at startup and share it freely.
type Template struct {
	ID             string              `json:"template_id"`
	NarrativeType  Type                `json:"narrative_type"`
	TestTypes      []string            `json:"test_types,omitempty"`
	Body           string              `json:"-"`
	RequiredFields []string            `json:"required_fields"`
	OptionalFields []string            `json:"optional_fields"`
	Conditions     map[string][]string `json:"conditions,omitempty"`
	Priority       int                 `json:"priority"`
	Version        string              `json:"version"`
}

// Registry is a read-only catalog of templates. Safe for unsynchronized
// concurrent reads; it is never mutated after construction.
type Registry struct {
	templates []*Template
	byID      map[string]*Template
}

// NewRegistry builds a registry from templates in the given order. Order
// matters: it breaks priority ties during matching.
func NewRegistry(templates ...*Template) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template with empty ID")
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template ID %q", t.ID)
		}
		r.templates = append(r.templates, t)
		r.byID[t.ID] = t
	}
	return r, nil
}

// DefaultRegistry returns a registry with the built-in templates.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(builtinTemplates()...)
	if err != nil {
		// Built-in templates are compiled in; a bad set is a programming error.
		panic(fmt.Sprintf("narrative: invalid built-in templates: %v", err))
	}
	return r
}

// Get returns the template with the given ID, or nil.
func (r *Registry) Get(id string) *Template {
	return r.byID[id]
}

// List returns all templates in registration order. The returned slice is
// a copy; the templates themselves are shared and must not be mutated.
func (r *Registry) List() []*Template {
	out := make([]*Template, len(r.templates))
	copy(out, r.templates)
	return out
}

// Find selects the template for a request. For statistical tests the
// lowercased test name is matched by substring against each template's
// test type aliases; the highest priority wins and ties break by
// registration order. Data summaries have exactly one eligible template.
func (r *Registry) Find(req Request) (*Template, error) {
	switch t := req.(type) {
	case *StatisticalTestRequest:
		name := strings.ToLower(t.TestName)
		var best *Template
		for _, tpl := range r.templates {
			if tpl.NarrativeType != TypeStatisticalTest {
				continue
			}
			if !matchesTestName(name, tpl.TestTypes) {
				continue
			}
			if best == nil || tpl.Priority > best.Priority {
				best = tpl
			}
		}
		if best == nil {
			return nil, &TemplateNotFoundError{NarrativeType: TypeStatisticalTest, TestName: t.TestName}
		}
		return best, nil

	case *DataSummaryRequest:
		for _, tpl := range r.templates {
			if tpl.NarrativeType == TypeDataSummary {
				return tpl, nil
			}
		}
		return nil, &TemplateNotFoundError{NarrativeType: TypeDataSummary}

	default:
		return nil, &TemplateNotFoundError{NarrativeType: req.NarrativeType()}
	}
}

func matchesTestName(lowerName string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(lowerName, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}
