package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/mindscreen/app"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
)

var resourcesLimit int

var resourcesCmd = &cobra.Command{
	Use:   "resources [level]",
	Short: "List resources for a risk level",
	Long: `Lists knowledge base documents suited to a risk level, in category order.
No embedding is needed. Unrecognized levels list general coping and therapy material.`,
	Args: cobra.ExactArgs(1),
	RunE: runResources,
}

func init() {
	resourcesCmd.Flags().IntVarP(&resourcesLimit, "limit", "n", rag.DefaultResourceLimit, "maximum number of resources")
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := app.LoadStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	level := risk.Level(strings.ToLower(strings.TrimSpace(args[0])))
	printDocuments(cmd, rag.ResourcesByRiskLevel(store, level, resourcesLimit))
	return nil
}
