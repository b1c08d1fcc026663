package registry

import (
	"slices"

	"github.com/danmuck/tracewire/internal/protocol/schema"
)

// Scoped narrows a base Locator to a subset of type codes and an extra
// acceptance predicate. Codec logic stays in the base; two scopes over one
// base never see each other's policy.
type Scoped struct {
	name   string
	base   Locator
	codes  []uint16
	accept Predicate
}

// NewScoped advertises only those codes that the base also knows. A nil
// accept admits every value the base owns under an advertised code.
func NewScoped(name string, base Locator, codes []uint16, accept Predicate) *Scoped {
	var kept []uint16
	for _, c := range codes {
		if _, ok := base.Lookup(c); ok && !slices.Contains(kept, c) {
			kept = append(kept, c)
		}
	}
	return &Scoped{name: name, base: base, codes: kept, accept: accept}
}

func (s *Scoped) Name() string { return s.name }

func (s *Scoped) Lookup(code uint16) (Entry, bool) {
	if !slices.Contains(s.codes, code) {
		return Entry{}, false
	}
	return s.base.Lookup(code)
}

func (s *Scoped) TypeCodeOf(v any) (uint16, bool) {
	if schema.IsNil(v) || (s.accept != nil && !s.accept(v)) {
		return 0, false
	}
	code, ok := s.base.TypeCodeOf(v)
	if !ok || !slices.Contains(s.codes, code) {
		return 0, false
	}
	return code, true
}

func (s *Scoped) IsSupport(v any) bool {
	_, ok := s.TypeCodeOf(v)
	return ok
}

func (s *Scoped) TypeCodes() []uint16 {
	return slices.Clone(s.codes)
}
