package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/mindscreen/app"
	"github.com/upb/mindscreen/internal/risk"
)

var (
	classifySet  []string
	classifyFile string
	classifyJSON bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Score questionnaire responses",
	Long: `Scores questionnaire responses into a risk level with recommendations.
Responses are given as repeated --set feature=value pairs, a JSON object file,
or both. --set values override the file.`,
	Example: `  mindscreen classify --set sleep_quality=8 --set anxiety_level=6
  mindscreen classify --file responses.json --json`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringArrayVar(&classifySet, "set", nil, "response as feature=value (repeatable)")
	classifyCmd.Flags().StringVarP(&classifyFile, "file", "f", "", "JSON file of responses")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	responses, err := parseResponses(classifySet, classifyFile)
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer logger.Sync()

	classifier, err := app.NewClassifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	result := classifier.Classify(responses)
	if classifyJSON {
		return printJSON(cmd, result)
	}
	printResult(cmd, result)
	return nil
}

// parseResponses merges a JSON file with key=value pairs. Numeric values are
// parsed as numbers; anything else is passed through for the classifier to judge.
func parseResponses(pairs []string, file string) (risk.Responses, error) {
	if len(pairs) == 0 && file == "" {
		return nil, errors.New("provide responses with --set or --file")
	}

	responses := risk.Responses{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read responses file: %w", err)
		}
		if err := json.Unmarshal(data, &responses); err != nil {
			return nil, fmt.Errorf("failed to parse responses file: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected feature=value", pair)
		}
		value = strings.TrimSpace(value)
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			responses[key] = f
		} else {
			responses[key] = value
		}
	}

	return responses, nil
}
