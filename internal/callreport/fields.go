package callreport

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Basis is the consolidation scope an entity files under. The scope is
// chosen per entity, not per field; it determines which code prefix is
// tried first during resolution.
type Basis string

const (
	BasisConsolidated Basis = "RCFD"
	BasisDomestic     Basis = "RCON"
	BasisForeign      Basis = "RCFN"
)

// basisAssetCodes are the "total assets" codes used to detect the governing
// basis, in precedence order.
const (
	consolidatedAssets = "RCFD2170"
	domesticAssets     = "RCON2170"
)

//go:embed fields.yaml
var fieldsYAML []byte

// Registry is the enumerated field registry: canonical field name to an
// ordered list of candidate codes. Keeping the mapping as data makes the
// fallback order auditable and testable in isolation.
type Registry struct {
	fields map[string][]string
}

var (
	defaultRegistry     *Registry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry parsed from the embedded definition.
func DefaultRegistry() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = ParseRegistry(fieldsYAML)
	})
	return defaultRegistry, defaultRegistryErr
}

// ParseRegistry parses a YAML registry definition and validates every
// candidate code prefix.
func ParseRegistry(data []byte) (*Registry, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "callreport: parse field registry")
	}
	for name, candidates := range raw {
		if len(candidates) == 0 {
			return nil, eris.Errorf("callreport: field %q has no candidate codes", name)
		}
		for _, code := range candidates {
			if len(code) < 5 {
				return nil, eris.Errorf("callreport: field %q candidate %q is too short", name, code)
			}
			switch prefixOf(code) {
			case "RCFD", "RCON", "RCFN", "RIAD":
			default:
				return nil, eris.Errorf("callreport: field %q candidate %q has unknown prefix", name, code)
			}
		}
	}
	return &Registry{fields: raw}, nil
}

// Candidates returns the candidate codes for a canonical field name.
func (r *Registry) Candidates(name string) []string {
	return r.fields[name]
}

// Names returns all canonical field names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func prefixOf(code string) string {
	if len(code) < 4 {
		return ""
	}
	return strings.ToUpper(code[:4])
}

// GoverningBasis determines which consolidation scope governs a record:
// consolidated when the consolidated total-assets figure is present and
// positive, domestic when the domestic figure is, foreign otherwise.
func GoverningBasis(rec Record) Basis {
	if v, ok := rec.Float(consolidatedAssets); ok && v > 0 {
		return BasisConsolidated
	}
	if v, ok := rec.Float(domesticAssets); ok && v > 0 {
		return BasisDomestic
	}
	return BasisForeign
}

// Resolver resolves canonical fields against one entity's raw record,
// preferring the entity's governing basis and falling back through the
// registry's remaining candidates.
//
// Known ambiguity, preserved for compatibility: Value folds an absent field
// to 0, so a legitimately-reported zero and a never-reported field are
// indistinguishable to callers of Value. Lookup exposes presence, and the
// resolver records which canonical names resolved to nothing so strict
// callers can surface them.
type Resolver struct {
	reg     *Registry
	rec     Record
	basis   Basis
	missing []string
}

// NewResolver builds a resolver for one record, fixing the governing basis
// once up front.
func NewResolver(reg *Registry, rec Record) *Resolver {
	return &Resolver{reg: reg, rec: rec, basis: GoverningBasis(rec)}
}

// Basis returns the governing basis detected for the record.
func (r *Resolver) Basis() Basis { return r.basis }

// Lookup resolves a canonical field, reporting whether any candidate was
// present. Candidates under the governing-basis prefix are tried first,
// then the rest in registry order.
func (r *Resolver) Lookup(name string) (float64, bool) {
	candidates := r.reg.Candidates(name)
	if len(candidates) == 0 {
		r.missing = append(r.missing, name)
		return 0, false
	}
	for _, code := range candidates {
		if prefixOf(code) != string(r.basis) {
			continue
		}
		if v, ok := r.rec.Float(code); ok {
			return v, true
		}
	}
	for _, code := range candidates {
		if prefixOf(code) == string(r.basis) {
			continue
		}
		if v, ok := r.rec.Float(code); ok {
			return v, true
		}
	}
	r.missing = append(r.missing, name)
	return 0, false
}

// Value resolves a canonical field, folding absence to 0.
func (r *Resolver) Value(name string) float64 {
	v, _ := r.Lookup(name)
	return v
}

// Missing returns canonical names that resolved to no candidate, in the
// order they were first looked up.
func (r *Resolver) Missing() []string { return r.missing }
