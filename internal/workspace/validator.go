package workspace

import (
	"fmt"
	"regexp"
)

// namePattern matches valid kebab-case names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Validator checks manifest invariants that the JSON schema cannot
// express.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire manifest.
func (v *Validator) Validate(config *Config) error {
	if err := v.validateWorkspace(&config.Workspace); err != nil {
		return fmt.Errorf("workspace validation failed: %w", err)
	}

	if err := v.validateBinaries(config.Binaries); err != nil {
		return fmt.Errorf("binaries validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateWorkspace(ws *WorkspaceMetadata) error {
	if ws.Name == "" {
		return fmt.Errorf("workspace name is required")
	}

	if err := ValidateName(ws.Name); err != nil {
		return fmt.Errorf("invalid workspace name: %w", err)
	}

	return nil
}

func (v *Validator) validateBinaries(bins []Binary) error {
	seen := make(map[string]bool, len(bins))
	for _, bin := range bins {
		if bin.Name == "" {
			return fmt.Errorf("binary name is required")
		}

		if err := ValidateName(bin.Name); err != nil {
			return fmt.Errorf("invalid binary name %q: %w", bin.Name, err)
		}

		if seen[bin.Name] {
			return fmt.Errorf("duplicate binary name %q", bin.Name)
		}
		seen[bin.Name] = true
	}

	return nil
}

// ValidateName validates a name follows kebab-case convention.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must be kebab-case (lowercase letters, numbers, and hyphens only, starting with a letter)")
	}
	return nil
}
