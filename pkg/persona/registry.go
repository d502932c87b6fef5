package persona

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var builtinPersonas []byte

// Registry is an ordered, read-only set of curated personas.
type Registry struct {
	order []string
	byID  map[string]*Profile
}

type registryFile struct {
	Personas []*Profile `yaml:"personas"`
}

// ParseRegistry decodes a YAML persona list. Every persona needs a unique id.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("persona: decode registry: %w", err)
	}

	r := &Registry{byID: make(map[string]*Profile, len(f.Personas))}
	for i, p := range f.Personas {
		if p == nil || p.ID == "" {
			return nil, fmt.Errorf("persona: registry entry %d has no id", i)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona: duplicate id %q", p.ID)
		}
		if p.Fields == nil {
			p.Fields = map[string]string{}
		}
		normalized := make(map[string]string, len(p.Fields))
		for k, v := range p.Fields {
			normalized[strings.ToUpper(k)] = strings.TrimSpace(v)
		}
		p.Fields = normalized
		if p.Name == "" {
			p.Name = p.Fields[FieldName]
		}
		r.order = append(r.order, p.ID)
		r.byID[p.ID] = p
	}
	return r, nil
}

// Builtin returns the registry shipped with the binary.
func Builtin() *Registry {
	r, err := ParseRegistry(builtinPersonas)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns a copy of the persona with id.
func (r *Registry) Get(id string) (*Profile, bool) {
	p, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// List returns every persona in file order.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].clone())
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.byID {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of personas.
func (r *Registry) Len() int {
	return len(r.order)
}

func (p *Profile) clone() *Profile {
	c := *p
	c.Fields = make(map[string]string, len(p.Fields))
	for k, v := range p.Fields {
		c.Fields[k] = v
	}
	return &c
}
