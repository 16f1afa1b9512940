package xos

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// VersionSortedGlob expands pattern and returns the matches sorted highest
// version first. Numeric components compare numerically, so "27.0.1" sorts
// above "9.0.0"; non-numeric components fall back to string comparison.
func VersionSortedGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return versionLess(filepath.Base(matches[j]), filepath.Base(matches[i]))
	})
	return matches, nil
}

// versionLess reports whether a sorts before b under version ordering.
func versionLess(a, b string) bool {
	sep := func(r rune) bool { return r == '.' || r == '-' || r == '_' }
	as := strings.FieldsFunc(a, sep)
	bs := strings.FieldsFunc(b, sep)
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if an != bn {
				return an < bn
			}
			continue
		}
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}
