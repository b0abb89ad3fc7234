// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/omnisense/internal/app"
	"github.com/pdiddy/omnisense/internal/provider"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a URL or analyze a screenshot",
	Long: `Research sends a URL and an objective to the model with web search
enabled and prints the report with its sources. With --image the screenshot
is analyzed instead and the query becomes the analysis prompt.

The report is saved to history. If it mentions a price drop or a new
release, an alert is raised too.`,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	query, _ := cmd.Flags().GetString("query")
	imagePath, _ := cmd.Flags().GetString("image")
	mimeType, _ := cmd.Flags().GetString("mime-type")

	req := app.ResearchRequest{URL: url, Query: query}
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		if mimeType == "" {
			mimeType = imageMIMEType(data)
		}
		req.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		req.MIMEType = mimeType
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	task, err := s.researcher.Start(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Researching...")

	out, err := task.Wait()
	if err != nil {
		return reportFailure(err)
	}
	printOutcome(cmd.OutOrStdout(), out)
	return nil
}

// reportFailure replaces provider errors with the generic message and logs
// the cause.
func reportFailure(err error) error {
	if errors.Is(err, provider.ErrResearchFailed) {
		logger.Debug("provider error", zap.Error(err))
		return errors.New(app.FailureMessage)
	}
	return err
}

// imageMIMEType sniffs data, keeping only image types.
func imageMIMEType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return ""
}

func init() {
	researchCmd.Flags().String("url", "", "page to research")
	researchCmd.Flags().String("query", "", "research objective, or the prompt for --image")
	researchCmd.Flags().String("image", "", "path to a screenshot to analyze")
	researchCmd.Flags().String("mime-type", "", "image MIME type (default: detected, else image/jpeg)")

	rootCmd.AddCommand(researchCmd)
}
