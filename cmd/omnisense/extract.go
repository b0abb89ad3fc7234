// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/omnisense/internal/app"
	"github.com/pdiddy/omnisense/internal/provider"
	"github.com/pdiddy/omnisense/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract typed fields from text or a web page",
	Long: `Extract asks the model for a JSON object with the fields named by
--field, each given as name:type[:description] where type is string, number,
array, or boolean. The input is --content, or the visible text of the page
at --url.

If the model does not answer with JSON, {} is printed and the command fails.`,
	Example: `  omnisense extract --url https://shop.example/widget \
    --field price:number:unit price in USD --field inStock:boolean`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	title, _ := cmd.Flags().GetString("title")
	content, _ := cmd.Flags().GetString("content")
	specs, _ := cmd.Flags().GetStringArray("field")

	fields, err := parseFields(specs)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := s.researcher.StartExtraction(cmd.Context(), app.ExtractRequest{
		URL:     url,
		Title:   title,
		Content: content,
		Fields:  fields,
	})
	if err != nil {
		return err
	}

	out, err := task.Wait()
	var pe *provider.ParseError
	if errors.As(err, &pe) {
		printJSON(cmd.OutOrStdout(), map[string]any{})
		return fmt.Errorf("model response was not JSON: %w", pe.Err)
	}
	if err != nil {
		return reportFailure(err)
	}
	printOutcome(cmd.OutOrStdout(), out)
	return nil
}

// parseFields reads name:type[:description] specs.
func parseFields(specs []string) ([]types.Field, error) {
	fields := make([]types.Field, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("field %q: want name:type[:description]", spec)
		}
		f := types.Field{
			Name: strings.TrimSpace(parts[0]),
			Type: types.FieldType(strings.ToLower(strings.TrimSpace(parts[1]))),
		}
		if len(parts) == 3 {
			f.Description = strings.TrimSpace(parts[2])
		}
		fields = append(fields, f)
	}
	if err := provider.ValidateFields(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func init() {
	extractCmd.Flags().String("url", "", "page to fetch when --content is empty")
	extractCmd.Flags().String("title", "", "title for the saved item (default: page title)")
	extractCmd.Flags().String("content", "", "text to extract from")
	extractCmd.Flags().StringArray("field", nil, "field spec name:type[:description] (repeatable)")

	rootCmd.AddCommand(extractCmd)
}
