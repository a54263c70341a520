package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/orchestrator"
	"github.com/sevigo/coderag/internal/retrieval"
	"github.com/sevigo/coderag/internal/wire"
)

var dimColor = color.New(color.FgHiBlack)

var (
	askHyDE         bool
	askMaxNodes     int
	askDisableGraph bool
)

var askCmd = &cobra.Command{
	Use:   "ask [project-id] [prompt]",
	Short: "Answer a question against a project's retrieval context",
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

		maxNodes := askMaxNodes
		if maxNodes <= 0 {
			maxNodes = retrieval.DefaultMaxNodes
		}

		done := make(chan struct{})
		var answer core.AnswerResult
		var runErr error
		job := &orchestrator.QueryJob{
			Orchestrator: bundle.Orchestrator,
			Query:        query,
			Options: orchestrator.AskOptions{
				UseHyDE:      askHyDE,
				MaxNodes:     maxNodes,
				DisableGraph: askDisableGraph,
			},
			Result: func(r core.AnswerResult, err error) {
				answer, runErr = r, err
				close(done)
			},
		}
		if err := application.Dispatcher.Dispatch(ctx, job); err != nil {
			return fmt.Errorf("failed to dispatch ask job: %w", err)
		}
		<-done
		if runErr != nil {
			return fmt.Errorf("ask failed: %w", runErr)
		}

		fmt.Println(answer.Text)
		dimColor.Printf("\n(%d prompt tokens, %d completion tokens)\n", answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
		if len(answer.Nodes) > 0 {
			dimColor.Println("\nsources:")
			for _, n := range answer.Nodes {
				dimColor.Printf("  %s\t%s\t%s:%d-%d\n", n.Kind, n.Name, n.FilePath, n.StartLine, n.EndLine)
			}
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // cobra flag registration
	askCmd.Flags().BoolVar(&askHyDE, "hyde", false, "draft a hypothetical answer and embed that instead of the raw query")
	askCmd.Flags().IntVar(&askMaxNodes, "max-nodes", 0, "maximum number of nodes to retrieve (default 80)")
	askCmd.Flags().BoolVar(&askDisableGraph, "no-graph", false, "disable graph expansion")
}
