package graph

import (
	"fmt"
	"net/url"
	"strings"
)

// FilterSet maps a filter control name to its selected value.
type FilterSet map[string]string

// Query encodes the non-empty filters as a URL query string, names sorted
// and joined by '&'. It returns "" when no filter is active.
func (f FilterSet) Query() string {
	v := url.Values{}
	for name, value := range f {
		if value == "" {
			continue
		}
		v.Set(name, value)
	}
	return v.Encode()
}

// URL appends the filter query to base.
func (f FilterSet) URL(base string) string {
	q := f.Query()
	if q == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q
}

// ParseFilters parses name=value pairs as given on the command line.
func ParseFilters(pairs []string) (FilterSet, error) {
	f := FilterSet{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q: expected name=value", p)
		}
		f[name] = value
	}
	return f, nil
}
