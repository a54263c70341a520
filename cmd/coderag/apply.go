package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderag/internal/wire"
)

var applyEditCmd = &cobra.Command{
	Use:   "apply-edit [project-id] [file] [new-content-file]",
	Short: "Atomically apply a validated edit to a file inside a project",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		projectID, relPath, contentPath := args[0], args[1], args[2]

		content, err := os.ReadFile(contentPath)
		if err != nil {
			return fmt.Errorf("failed to read new content: %w", err)
		}

		application, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		bundle, err := application.OpenProject(projectID)
		if err != nil {
			return fmt.Errorf("failed to open project %q: %w", projectID, err)
		}

		language := strings.TrimPrefix(filepath.Ext(relPath), ".")
		result, err := bundle.Journal.Apply(relPath, language, content)
		if err != nil {
			return fmt.Errorf("apply-edit failed: %w", err)
		}

		if !result.Committed {
			fmt.Printf("edit rejected: %s\n", result.Reason)
			return nil
		}
		fmt.Println("edit committed")
		return nil
	},
}
