// Package keyword parses xgettext-style keyword specifications and resolves
// which spec applies to a call site with a given argument count.
package keyword

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// DefaultSpecs are the keyword specifications applied when the user does not
// replace them. `_` takes the message as its only argument.
var DefaultSpecs = []string{"_:1,1t"}

// Spec describes one recognized call shape for a keyword. Argument indices
// are 0-based; -1 means the role is absent. TotalArgs is the exact
// positional-argument count this spec applies to, 0 when unconstrained.
type Spec struct {
	Name      string
	Singular  int
	Plural    int
	Context   int
	TotalArgs int
	Comment   string
}

// Bare reports whether the spec was given with no argument specification at
// all. Bare specs match any call and use argument 0 as the singular.
func (s Spec) Bare() bool { return s.Singular < 0 }

// SingularIndex returns the effective singular argument index.
func (s Spec) SingularIndex() int {
	if s.Bare() {
		return 0
	}
	return s.Singular
}

// maxIndex returns the largest argument index referenced by the spec.
func (s Spec) maxIndex() int {
	max := s.Singular
	if s.Plural > max {
		max = s.Plural
	}
	if s.Context > max {
		max = s.Context
	}
	return max
}

// ParseSpec parses a single specification of the form `name` or
// `name:argspec`. The argspec is a comma-separated list of 1-based argument
// positions: a bare integer is consumed as singular then plural, `Nc` marks
// the context argument, `Nt` fixes the total argument count, and a
// double-quoted string attaches a comment to extracted entries.
func ParseSpec(raw string) (Spec, error) {
	spec := Spec{Singular: -1, Plural: -1, Context: -1}

	name, argspec, found := strings.Cut(raw, ":")
	if name == "" {
		return spec, fmt.Errorf("keyword spec %q: empty keyword name", raw)
	}
	spec.Name = name
	if !found || argspec == "" {
		return spec, nil
	}

	parts := strings.Split(argspec, ",")
	tokens, comments, err := groupQuoted(raw, parts)
	if err != nil {
		return spec, err
	}
	spec.Comment = strings.Join(comments, "\n")

	var positional []int
	for _, tok := range tokens {
		suffix := byte(0)
		numText := tok
		if n := len(tok); n > 0 && (tok[n-1] == 'c' || tok[n-1] == 't') {
			suffix = tok[n-1]
			numText = tok[:n-1]
		}

		num, convErr := strconv.Atoi(numText)
		if convErr != nil {
			return spec, fmt.Errorf("keyword spec %q: '%s' is not a valid integer", raw, tok)
		}
		if num < 1 {
			return spec, fmt.Errorf("keyword spec %q: invalid position %d, argument numbers start from 1", raw, num)
		}

		switch suffix {
		case 'c':
			if spec.Context >= 0 {
				return spec, fmt.Errorf("keyword spec %q: context argument specified more than once", raw)
			}
			spec.Context = num - 1
		case 't':
			if spec.TotalArgs > 0 {
				return spec, fmt.Errorf("keyword spec %q: total argument count specified more than once", raw)
			}
			spec.TotalArgs = num
		default:
			if len(positional) == 2 {
				return spec, fmt.Errorf("keyword spec %q: more than two positional arguments", raw)
			}
			positional = append(positional, num-1)
		}
	}

	if len(positional) == 0 {
		return spec, fmt.Errorf("keyword spec %q: the singular form argument needs to be specified", raw)
	}
	spec.Singular = positional[0]
	if len(positional) == 2 {
		spec.Plural = positional[1]
	}

	if spec.Singular == spec.Plural ||
		(spec.Context >= 0 && (spec.Context == spec.Singular || spec.Context == spec.Plural)) {
		return spec, fmt.Errorf("keyword spec %q: the same argument number cannot be used for two roles", raw)
	}
	if spec.TotalArgs > 0 && spec.TotalArgs <= spec.maxIndex() {
		return spec, fmt.Errorf("keyword spec %q: total argument count cannot be lower than any argument position", raw)
	}

	return spec, nil
}

// groupQuoted splits the comma-separated parts into integer tokens and
// quoted comments. A part ending with a double quote closes a comment; its
// opening part is found by scanning backward over parts not yet consumed,
// restoring the commas swallowed by the split. A part that opens a quote
// which is never closed is left in place and fails integer parsing later.
func groupQuoted(raw string, parts []string) (tokens, comments []string, err error) {
	consumed := make([]bool, len(parts))

	for i, part := range parts {
		if !strings.HasSuffix(part, `"`) || consumed[i] {
			continue
		}
		opened := -1
		for j := i; j >= 0; j-- {
			if consumed[j] {
				break
			}
			if strings.HasPrefix(parts[j], `"`) && (j != i || len(part) >= 2) {
				opened = j
				break
			}
		}
		if opened < 0 {
			return nil, nil, fmt.Errorf("keyword spec %q: comment %q has no starting quote", raw, part)
		}
		joined := strings.Join(parts[opened:i+1], ",")
		comments = append(comments, joined[1:len(joined)-1])
		for j := opened; j <= i; j++ {
			consumed[j] = true
		}
	}

	for i, part := range parts {
		if !consumed[i] {
			tokens = append(tokens, part)
		}
	}
	return tokens, comments, nil
}

// Registry holds all parsed keyword specs, ready for per-call resolution.
type Registry struct {
	specs map[string][]Spec
}

// ParseSpecs parses every specification string and builds a Registry.
// All invalid specs are reported together in a single error.
func ParseSpecs(rawSpecs []string) (*Registry, error) {
	var errs *multierror.Error
	byName := make(map[string][]Spec)

	for _, raw := range rawSpecs {
		spec, err := ParseSpec(raw)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		for _, existing := range byName[spec.Name] {
			if existing.TotalArgs != spec.TotalArgs {
				continue
			}
			if spec.TotalArgs > 0 {
				errs = multierror.Append(errs, fmt.Errorf(
					"keyword %q: total argument count %d has been specified more than once",
					spec.Name, spec.TotalArgs))
			} else {
				errs = multierror.Append(errs, fmt.Errorf(
					"keyword %q: spec with no total argument count has been specified more than once",
					spec.Name))
			}
		}
		byName[spec.Name] = append(byName[spec.Name], spec)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	// Candidates with a fixed total count are tried first, in ascending
	// order; the unconstrained spec is the fallback.
	for name := range byName {
		specs := byName[name]
		sort.SliceStable(specs, func(i, j int) bool {
			a, b := specs[i].TotalArgs, specs[j].TotalArgs
			if (a > 0) != (b > 0) {
				return a > 0
			}
			return a < b
		})
	}

	return &Registry{specs: byName}, nil
}

// Known reports whether any spec is registered under the given name.
func (r *Registry) Known(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Match resolves the spec to use for a call with the given positional
// argument count. The first candidate in registry order wins.
func (r *Registry) Match(name string, argc int) (Spec, bool) {
	for _, spec := range r.specs[name] {
		switch {
		case spec.TotalArgs > 0:
			if argc == spec.TotalArgs {
				return spec, true
			}
		case spec.Bare():
			if argc >= 1 {
				return spec, true
			}
		default:
			if argc >= spec.maxIndex()+1 {
				return spec, true
			}
		}
	}
	return Spec{}, false
}

// Specs returns the registered candidates for a name in resolution order.
func (r *Registry) Specs(name string) []Spec {
	return r.specs[name]
}
