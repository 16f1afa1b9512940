package cargo

import (
	"regexp"
	"strings"
)

// ErrorTranslator converts raw cargo/rustc failure output into a short
// actionable message for the summary line. The full output has already
// streamed to the terminal, so this only names the failure class.
type ErrorTranslator struct{}

// NewErrorTranslator creates a new error translator.
func NewErrorTranslator() *ErrorTranslator {
	return &ErrorTranslator{}
}

var lockfileMismatch = regexp.MustCompile(`lock file .* needs to be updated`)

// Translate classifies a cargo failure.
func (t *ErrorTranslator) Translate(output string) string {
	switch {
	case lockfileMismatch.MatchString(output):
		return "Dependency lockfile is out of date. Re-run without --locked or refresh Cargo.lock."
	case strings.Contains(output, "linker") && strings.Contains(output, "not found"):
		return "Linker not found. For cross builds, check the SDK configuration."
	case strings.Contains(output, "could not find `Cargo.toml`"):
		return "Not inside a cargo workspace (no Cargo.toml found)."
	case strings.Contains(output, "no bin target named"):
		return "Unknown binary name. Check the binaries list in velo.json."
	case strings.Contains(output, "error[E"):
		return "Compilation failed. See the compiler output above."
	}
	return firstLine(output)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if line == "" {
		return "build failed"
	}
	return line
}
