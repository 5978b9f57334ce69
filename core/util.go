package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStringPtr is CleanString for optional (partial update) fields; nil stays nil.
func CleanStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanString(*s)
	return &cleaned
}
