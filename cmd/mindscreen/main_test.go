package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/mindscreen/app"
	"github.com/upb/mindscreen/config"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
	"github.com/upb/mindscreen/routes"
	"github.com/upb/mindscreen/services/resources"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	// Setup
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")
	os.Setenv("DB_DRIVER", "sqlite")
	os.Setenv("SQLITE_PATH", ":memory:")
	os.Setenv("EMBEDDING_PROVIDER", "hash")
	os.Setenv("EMBEDDING_HASH_DIMENSIONS", "64")
	color.NoColor = true

	// Run tests
	code := m.Run()

	// Teardown
	os.Exit(code)
}

func resetFlags() {
	classifySet, classifyFile, classifyJSON = nil, "", false
	searchRiskLevel, searchTopK, searchJSON = "", 0, false
	resourcesLimit = rag.DefaultResourceLimit
	searchCmd.Flags().Lookup("top-k").Changed = false
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestInitLogger(t *testing.T) {
	t.Run("json logger", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("console logger", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"}}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{LogLevel: "invalid", LogFormat: "json"}}

		logger, err := initLogger(cfg)
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestParseResponses(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "responses.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"sleep_quality": 4, "anxiety_level": 7}`), 0o600))
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"sleep_quality":`), 0o600))

	tests := []struct {
		name    string
		pairs   []string
		file    string
		want    risk.Responses
		wantErr string
	}{
		{
			name:  "numeric pairs",
			pairs: []string{"sleep_quality=8", " stress_level = 2.5"},
			want:  risk.Responses{"sleep_quality": 8.0, "stress_level": 2.5},
		},
		{
			name:  "non numeric value is kept as text",
			pairs: []string{"sleep_quality=poor"},
			want:  risk.Responses{"sleep_quality": "poor"},
		},
		{
			name:  "pairs override file",
			pairs: []string{"anxiety_level=1"},
			file:  file,
			want:  risk.Responses{"sleep_quality": 4.0, "anxiety_level": 1.0},
		},
		{name: "nothing given", wantErr: "provide responses"},
		{name: "missing separator", pairs: []string{"sleep_quality"}, wantErr: "expected feature=value"},
		{name: "empty key", pairs: []string{"=3"}, wantErr: "expected feature=value"},
		{name: "missing file", file: filepath.Join(dir, "nope.json"), wantErr: "failed to read"},
		{name: "broken file", file: broken, wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponses(tt.pairs, tt.file)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCmd(t *testing.T) {
	t.Run("human readable", func(t *testing.T) {
		out, err := executeCommand(t, "classify",
			"--set", "sleep_quality=10", "--set", "anxiety_level=10", "--set", "self_harm_thoughts=10")

		require.NoError(t, err)
		assert.Contains(t, out, "Risk level:")
		assert.Contains(t, out, "Recommendations:")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := executeCommand(t, "classify", "--set", "sleep_quality=0", "--json")
		require.NoError(t, err)

		var result risk.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, risk.LevelLow, result.RiskLevel)
		assert.Equal(t, risk.ModelHeuristic, result.ModelUsed)
	})

	t.Run("unparseable value falls back", func(t *testing.T) {
		out, err := executeCommand(t, "classify", "--set", "sleep_quality=poor")

		require.NoError(t, err)
		assert.Contains(t, out, "MEDIUM")
		assert.Contains(t, out, "could not be scored")
	})

	t.Run("requires responses", func(t *testing.T) {
		_, err := executeCommand(t, "classify")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "provide responses")
	})
}

func TestSearchCmd(t *testing.T) {
	t.Run("requires exactly one arg", func(t *testing.T) {
		_, err := executeCommand(t, "search")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})

	t.Run("json results with top k", func(t *testing.T) {
		out, err := executeCommand(t, "search", "--top-k", "2", "--json", "trouble sleeping at night")
		require.NoError(t, err)

		var result resources.SearchResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, 2, result.TopK)
		assert.Len(t, result.Results, 2)
	})

	t.Run("risk level restricts categories", func(t *testing.T) {
		out, err := executeCommand(t, "search", "-r", "critical", "--json", "I need help now")
		require.NoError(t, err)

		var result resources.SearchResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		for _, r := range result.Results {
			assert.Contains(t, []rag.Category{rag.CategoryCrisis, rag.CategoryTherapy}, r.Document.Category)
		}
	})

	t.Run("table output", func(t *testing.T) {
		out, err := executeCommand(t, "search", "breathing exercises")

		require.NoError(t, err)
		assert.Contains(t, out, "Results:")
		assert.Contains(t, out, "[1]")
	})

	t.Run("unknown risk level", func(t *testing.T) {
		_, err := executeCommand(t, "search", "--risk-level", "severe", "help")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestResourcesCmd(t *testing.T) {
	t.Run("limit", func(t *testing.T) {
		out, err := executeCommand(t, "resources", "critical", "--limit", "2")

		require.NoError(t, err)
		assert.Contains(t, out, "[2]")
		assert.NotContains(t, out, "[3]")
	})

	t.Run("has limit flag", func(t *testing.T) {
		flag := resourcesCmd.Flags().Lookup("limit")
		require.NotNil(t, flag)
		assert.Equal(t, "n", flag.Shorthand)
		assert.Equal(t, fmt.Sprint(rag.DefaultResourceLimit), flag.DefValue)
	})
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(ctx)
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependencies(ctx, cfg, logger)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: routes.SetupRoutes(deps), ReadHeaderTimeout: time.Second}
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, deps, logger)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}

	// Dependencies are closed by the shutdown path
	assert.NoError(t, deps.Close(context.Background()))
}
