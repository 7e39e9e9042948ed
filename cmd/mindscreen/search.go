package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/mindscreen/app"
	"github.com/upb/mindscreen/services/audit"
	"github.com/upb/mindscreen/services/resources"
)

var (
	searchRiskLevel string
	searchTopK      int
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search support resources",
	Long: `Embeds the query and ranks knowledge base documents by cosine similarity.
A risk level restricts results to the categories suited to that level.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchRiskLevel, "risk-level", "r", "", "restrict to categories for low, medium, high or critical")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from RETRIEVAL_DEFAULT_TOP_K)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	knowledge, err := app.NewKnowledge(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer knowledge.Close()

	svc := resources.NewResourceService(knowledge.Retriever, nil, resources.Config{
		DefaultTopK:    cfg.Retrieval.DefaultTopK,
		MaxTopK:        cfg.Retrieval.MaxTopK,
		ResourcesLimit: cfg.Retrieval.ResourcesLimit,
	}, logger)

	req := resources.SearchRequest{Query: args[0], RiskLevel: searchRiskLevel}
	if cmd.Flags().Changed("top-k") {
		topK := searchTopK
		req.TopK = &topK
	}

	result, err := svc.Search(ctx, req, audit.RequestInfo{})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, result)
	}
	printRanked(cmd, result.Results)
	return nil
}
