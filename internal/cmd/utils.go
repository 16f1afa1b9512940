package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"velo/internal/envtable"
)

// joinNames renders binary names for progress messages.
func joinNames(names []string) string {
	if len(names) == 0 {
		return "all binaries"
	}
	return strings.Join(names, ", ")
}

// dumpEnv prints the exact environment the compiler will see, one variable
// per line, sorted for stable diffing.
func dumpEnv(env *envtable.Table) {
	lines := env.Environ()
	sort.Strings(lines)
	fmt.Fprintln(os.Stderr, "--- compiler environment ---")
	for _, line := range lines {
		fmt.Fprintln(os.Stderr, line)
	}
	fmt.Fprintln(os.Stderr, "----------------------------")
}
