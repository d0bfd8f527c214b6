package loyalty

import (
	"slices"
	"strconv"
	"strings"
)

// StatusFilter selects which historical orders count toward cumulative
// spend. The zero value accepts every status.
type StatusFilter struct {
	min    int
	hasMin bool
	set    []int
}

// ParseStatusFilter accepts "" (any status), "3" (status >= 3) or
// "2,3,5" (status in set).
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusFilter{}, nil
	}

	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return StatusFilter{}, &ConfigError{Kind: ErrStatusFilter, Index: -1, Entry: s}
		}
		values = append(values, v)
	}

	if len(values) == 1 {
		return StatusFilter{min: values[0], hasMin: true}, nil
	}
	slices.Sort(values)
	return StatusFilter{set: slices.Compact(values)}, nil
}

// MinStatus returns the minimum status for a "status >= N" filter.
func (f StatusFilter) MinStatus() (int, bool) {
	return f.min, f.hasMin
}

// Statuses returns the accepted statuses for a "status in set" filter.
func (f StatusFilter) Statuses() []int {
	return slices.Clone(f.set)
}

// Unrestricted reports whether the filter accepts every status.
func (f StatusFilter) Unrestricted() bool {
	return !f.hasMin && len(f.set) == 0
}

// Matches reports whether an order with the given status qualifies.
func (f StatusFilter) Matches(status int) bool {
	switch {
	case f.hasMin:
		return status >= f.min
	case len(f.set) > 0:
		_, found := slices.BinarySearch(f.set, status)
		return found
	default:
		return true
	}
}

func (f StatusFilter) String() string {
	switch {
	case f.hasMin:
		return ">=" + strconv.Itoa(f.min)
	case len(f.set) > 0:
		parts := make([]string, len(f.set))
		for i, v := range f.set {
			parts[i] = strconv.Itoa(v)
		}
		return "in(" + strings.Join(parts, ",") + ")"
	default:
		return "any"
	}
}
