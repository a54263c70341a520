package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderag/internal/orchestrator"
	"github.com/sevigo/coderag/internal/retrieval"
	"github.com/sevigo/coderag/internal/wire"
)

var (
	candidatesHyDE         bool
	candidatesMaxNodes     int
	candidatesDisableGraph bool
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates [project-id] [prompt]",
	Short: "List the nodes retrieval would select for a prompt, without generating an answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, query := args[0], args[1]
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
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

		maxNodes := candidatesMaxNodes
		if maxNodes <= 0 {
			maxNodes = retrieval.DefaultMaxNodes
		}
		nodes, err := bundle.Orchestrator.Candidates(ctx, query, orchestrator.AskOptions{
			UseHyDE:      candidatesHyDE,
			MaxNodes:     maxNodes,
			DisableGraph: candidatesDisableGraph,
		})
		if err != nil {
			return fmt.Errorf("candidates failed: %w", err)
		}

		for _, n := range nodes {
			fmt.Printf("%s\t%s\t%s:%d-%d\n", n.Kind, n.Name, n.FilePath, n.StartLine, n.EndLine)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // cobra flag registration
	candidatesCmd.Flags().BoolVar(&candidatesHyDE, "hyde", false, "draft a hypothetical answer and embed that instead of the raw query")
	candidatesCmd.Flags().IntVar(&candidatesMaxNodes, "max-nodes", 0, "maximum number of nodes to retrieve (default 80)")
	candidatesCmd.Flags().BoolVar(&candidatesDisableGraph, "no-graph", false, "disable graph expansion")
}
