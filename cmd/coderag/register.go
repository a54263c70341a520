package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/project"
	"github.com/sevigo/coderag/internal/wire"
)

var (
	registerID       string
	registerIgnore   []string
	registerInclude  []string
	registerAllowExt []string
)

var registerCmd = &cobra.Command{
	Use:   "register [source-dir]",
	Short: "Register a local source tree as a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		sourceDir, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve source dir: %w", err)
		}

		application, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		id := registerID
		if id == "" {
			id = project.GenerateID(sourceDir)
		}
		storageDir := filepath.Join(application.Cfg.Storage.RootDir, "projects", id)

		p := core.Project{
			ID:                id,
			SourceDir:         sourceDir,
			StorageDir:        storageDir,
			AllowedExtensions: registerAllowExt,
			IgnoredPaths:      registerIgnore,
			IncludedPaths:     registerInclude,
		}
		if err := application.Registry.Register(p); err != nil {
			return fmt.Errorf("failed to register project: %w", err)
		}

		fmt.Printf("registered project %q (%s)\n", id, sourceDir)
		return nil
	},
}

func init() { //nolint:gochecknoinits // cobra flag registration
	registerCmd.Flags().StringVar(&registerID, "id", "", "project id (default: derived from the source directory name)")
	registerCmd.Flags().StringSliceVar(&registerIgnore, "ignore", nil, "path prefixes to ignore")
	registerCmd.Flags().StringSliceVar(&registerInclude, "include", nil, "path prefixes to force-include, overriding ignore")
	registerCmd.Flags().StringSliceVar(&registerAllowExt, "ext", nil, "file extensions to include (default: all)")
}
