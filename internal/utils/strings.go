// Package utils holds small helpers shared by the HTTP layer and configuration.
package utils

import "strings"

// SplitList splits a comma separated list, trimming each entry and dropping empties.
// Returns nil when nothing remains.
func SplitList(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

// SplitUpper is SplitList with every entry upper cased.
func SplitUpper(s string) []string {
	result := SplitList(s)
	for i, v := range result {
		result[i] = strings.ToUpper(v)
	}
	return result
}
