package cli

import (
	"fmt"

	"github.com/raphaelgruber/fairprobe/internal/population"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [file]",
	Short: "Print the built-in feature schema or validate a custom one",
	Long: `Print the built-in feature schema as YAML, or validate a custom
schema file.

The printed output is a valid starting point for 'start --schema': save
it, adjust the features, and pass the file back in.

Examples:
  fairprobe schema                  # print the built-in schema
  fairprobe schema > features.yaml  # save it as a template
  fairprobe schema ./features.yaml  # validate a custom schema`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		data, err := population.Default().Encode()
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	schema, err := population.LoadSchemaFile(args[0])
	if err != nil {
		return err
	}

	protected := schema.Protected()
	names := make([]string, len(protected))
	for i, f := range protected {
		names[i] = f.Name
	}
	fmt.Printf("Schema OK: %d features, %d protected %v\n", len(schema.Features), len(protected), names)

	if verbose {
		for _, f := range schema.Features {
			mark := ""
			if f.Protected {
				mark = " [protected]"
			}
			fmt.Printf("  - %s (%s)%s\n", f.Name, f.Kind, mark)
		}
	}

	return nil
}
