package todo

import (
	"slices"
	"strings"
)

// Category groups todos for filtering.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryOther    Category = "other"
)

// Categories lists every category.
func Categories() []Category {
	return []Category{CategoryPersonal, CategoryWork, CategoryOther}
}

// IsValid reports whether c is one of Categories.
func (c Category) IsValid() bool {
	return isOneOf(c, Categories())
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// OneOfMessage renders the validation message listing the allowed values,
// e.g. "must be one of: pending, in_progress, done".
func OneOfMessage[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return "must be one of: " + strings.Join(names, ", ")
}

func isOneOf[T ~string](v T, values []T) bool {
	return slices.Contains(values, v)
}
