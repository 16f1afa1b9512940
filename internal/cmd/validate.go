package cmd

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"velo/internal/workspace"
)

//go:embed schemas/velo-config.v1.schema.json
var schemaFS embed.FS

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate velo.json configuration",
	Long: `Validates the velo.json manifest against the JSON Schema and checks
semantic rules the schema cannot express (unique binary names, kebab-case
naming).`,
	RunE: runValidateCmd,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidateCmd(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return fmt.Errorf("not in a velo workspace: %w", err)
	}

	configPath := filepath.Join(root, workspace.ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("%s not found in %s", workspace.ConfigFileName, root)
	}

	fmt.Printf("🔍 Validating %s...\n", configPath)

	schemaBytes, err := schemaFS.ReadFile("schemas/velo-config.v1.schema.json")
	if err != nil {
		return fmt.Errorf("failed to load JSON schema: %w", err)
	}

	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", workspace.ConfigFileName, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(configBytes),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		fmt.Println("\n❌ Validation failed with the following errors:")
		fmt.Println()
		for i, desc := range result.Errors() {
			fmt.Printf("%d. %s\n", i+1, desc.String())
			fmt.Printf("   Field: %s\n\n", desc.Field())
		}
		return fmt.Errorf("%s is invalid", workspace.ConfigFileName)
	}

	manifest, err := workspace.LoadConfig(root)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", workspace.ConfigFileName, err)
	}
	if err := workspace.NewValidator().Validate(manifest); err != nil {
		return fmt.Errorf("❌ Semantic validation failed: %w", err)
	}

	fmt.Printf("✅ %s is valid!\n", workspace.ConfigFileName)
	return nil
}
