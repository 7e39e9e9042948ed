package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
)

var (
	boldCyan = color.New(color.FgCyan, color.Bold).SprintFunc()
	faint    = color.New(color.Faint).SprintFunc()
)

func levelColor(level risk.Level) *color.Color {
	switch level {
	case risk.LevelLow:
		return color.New(color.FgGreen, color.Bold)
	case risk.LevelMedium:
		return color.New(color.FgYellow, color.Bold)
	case risk.LevelHigh:
		return color.New(color.FgRed, color.Bold)
	case risk.LevelCritical:
		return color.New(color.FgHiWhite, color.BgRed, color.Bold)
	default:
		return color.New(color.Bold)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResult(cmd *cobra.Command, result risk.Result) {
	level := levelColor(result.RiskLevel).Sprint(strings.ToUpper(string(result.RiskLevel)))
	cmd.Printf("Risk level: %s\n", level)
	cmd.Printf("Risk score: %.1f\n", result.RiskScore)
	cmd.Printf("Confidence: %.2f (%s)\n", result.Confidence, result.ModelUsed)
	if result.Fallback {
		cmd.Println(faint("Responses could not be scored, showing the default assessment."))
	}

	if len(result.ContributingFactors) > 0 {
		cmd.Println()
		cmd.Println("Contributing factors:")
		for _, f := range result.ContributingFactors {
			cmd.Printf("  - %s\n", f)
		}
	}

	cmd.Println()
	cmd.Println("Recommendations:")
	for _, r := range result.Recommendations {
		cmd.Printf("  - %s\n", r)
	}
}

func printRanked(cmd *cobra.Command, results []rag.RankedResource) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, boldCyan(r.Document.Title), r.RelevanceScore)
		cmd.Printf("      %s\n", faint(r.Document.Category))
		cmd.Printf("      %s\n", r.Document.Content)
		cmd.Println()
	}
}

func printDocuments(cmd *cobra.Command, docs []rag.Document) {
	if len(docs) == 0 {
		cmd.Println("No resources found.")
		return
	}

	for i, d := range docs {
		cmd.Printf("  [%d] %s %s\n", i+1, boldCyan(d.Title), faint("("+string(d.Category)+")"))
		cmd.Printf("      %s\n", d.Content)
	}
}
