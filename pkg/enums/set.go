package enums

import (
	"fmt"
	"slices"
)

func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

func parse[T ~string](value string, set []T, kind string) (T, error) {
	if v := T(value); member(v, set) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
