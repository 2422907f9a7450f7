// Package selection parses per-request field selections into a canonical,
// immutable Spec. A selection is a pair of path lists: include paths
// (empty means "all fields") and omit paths (empty means "omit nothing").
// Paths address nested relations with a fixed separator, e.g.
// "type__created_by".
package selection

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/GirishKotra/dynamic-read/errors"
)

// Separator is the fixed path separator between relation hops.
const Separator = "__"

// Query parameter names understood by FromQuery.
const (
	FieldsParam = "fields"
	OmitParam   = "omit"
)

// Spec is a normalized, immutable selection. Logically identical requests
// (reordered or duplicated paths) produce equal Specs with identical keys,
// so a Spec is safe to use as a cache key component.
type Spec struct {
	include []string
	omit    []string
}

// Parse builds a canonical Spec from raw include/omit path lists. Each path
// is validated segment-wise; empty segments (including empty paths) are
// rejected. Parse is pure: equal inputs always yield equal Specs.
func Parse(include, omit []string) (Spec, error) {
	canonInclude, err := canonicalize(include)
	if err != nil {
		return Spec{}, err
	}
	canonOmit, err := canonicalize(omit)
	if err != nil {
		return Spec{}, err
	}
	return Spec{include: canonInclude, omit: canonOmit}, nil
}

// canonicalize validates, sorts and dedupes one raw path list.
func canonicalize(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := validatePath(path); err != nil {
			return nil, err
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func validatePath(path string) error {
	if path == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty path: %w", errors.ErrMalformedPath),
			"selection", "Parse", "path validation")
	}
	for _, segment := range strings.Split(path, Separator) {
		if segment == "" {
			return errors.WrapInvalid(
				fmt.Errorf("path %q has an empty segment: %w", path, errors.ErrMalformedPath),
				"selection", "Parse", "path validation")
		}
	}
	return nil
}

// FromQuery extracts raw include/omit path lists from URL query parameters.
// Each parameter value is a comma-separated list; values are trimmed and
// empty items dropped. The result feeds Parse.
func FromQuery(values url.Values) (include, omit []string) {
	return splitParam(values[FieldsParam]), splitParam(values[OmitParam])
}

func splitParam(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// Include returns the canonical include paths. The returned slice must not
// be modified.
func (s Spec) Include() []string {
	return s.include
}

// Omit returns the canonical omit paths. The returned slice must not be
// modified.
func (s Spec) Omit() []string {
	return s.omit
}

// IsZero reports whether the spec selects everything (no include filter,
// nothing omitted).
func (s Spec) IsZero() bool {
	return len(s.include) == 0 && len(s.omit) == 0
}

// Key returns a canonical string representation suitable for use as a
// cache key. Equal Specs always produce identical keys.
func (s Spec) Key() string {
	var b strings.Builder
	b.WriteString("fields=")
	b.WriteString(strings.Join(s.include, ","))
	b.WriteString("&omit=")
	b.WriteString(strings.Join(s.omit, ","))
	return b.String()
}

// Equal reports value equality of two Specs.
func (s Spec) Equal(other Spec) bool {
	if len(s.include) != len(other.include) || len(s.omit) != len(other.omit) {
		return false
	}
	for i := range s.include {
		if s.include[i] != other.include[i] {
			return false
		}
	}
	for i := range s.omit {
		if s.omit[i] != other.omit[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer for logging.
func (s Spec) String() string {
	return s.Key()
}
