package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mai-automation/linkstatus/internal/config"
	"github.com/mai-automation/linkstatus/internal/model"
)

// TestNewAuditCmd tests the audit command creation.
func TestNewAuditCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAuditCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "audit <start-url>" {
			t.Errorf("expected use 'audit <start-url>', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has expected flag shorthands", func(t *testing.T) {
		t.Parallel()

		shorthands := map[string]string{
			"depth":       "d",
			"exclude":     "x",
			"concurrency": "n",
			"timeout":     "t",
			"retries":     "r",
			"user-agent":  "u",
			"config":      "c",
			"json":        "j",
			"markdown":    "m",
			"output":      "o",
		}
		for name, short := range shorthands {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != short {
				t.Errorf("expected shorthand %q for %s, got %q", short, name, flag.Shorthand)
			}
		}
	})

	t.Run("has pacing flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"pace-min", "pace-max", "no-pace"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has no-save flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("no-save")
		if flag == nil {
			t.Fatal("expected no-save flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewAuditCmd()
		if getVerboseFlag(cmd) {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		_ = root.PersistentFlags().Set("verbose", "true")

		auditCmd, _, err := root.Find([]string{"audit"})
		if err != nil {
			t.Fatalf("failed to find audit command: %v", err)
		}

		if !getVerboseFlag(auditCmd) {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewAuditCmd()
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if cfg.StartURL != "https://example.com" {
			t.Errorf("expected start URL 'https://example.com', got %q", cfg.StartURL)
		}
		if cfg.MaxDepth != config.DefaultMaxDepth {
			t.Errorf("expected default depth %d, got %d", config.DefaultMaxDepth, cfg.MaxDepth)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true by default")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to be set when saving is enabled")
		}
	})

	t.Run("builds config with custom depth", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("depth", "5")
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxDepth != 5 {
			t.Errorf("expected depth 5, got %d", cfg.MaxDepth)
		}
	})

	t.Run("builds config with exclude patterns", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("exclude", "/archive/,/tags/")
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.ExcludePatterns) != 2 {
			t.Errorf("expected 2 exclude patterns, got %v", cfg.ExcludePatterns)
		}
	})

	t.Run("no-pace disables pacing", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("no-pace", "true")
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.PaceMin != 0 || cfg.PaceMax != 0 {
			t.Errorf("expected zero pacing, got %v..%v", cfg.PaceMin, cfg.PaceMax)
		}
	})

	t.Run("no-save disables database persistence", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("no-save", "true")
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false with --no-save")
		}
	})

	t.Run("builds config with JSON flag", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("json", "true")
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.JSONReport {
			t.Error("expected JSONReport to be true")
		}
	})

	t.Run("builds config with valid config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "linkstatus.yaml")

		content := []byte(`
defaults:
  depth: 4
sites:
  example.com:
    cookie: session=xyz
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteConfigs == nil {
			t.Fatal("expected SiteConfigs to be loaded")
		}
		if cfg.SiteConfigs.Defaults.Depth != 4 {
			t.Errorf("expected default depth 4, got %d", cfg.SiteConfigs.Defaults.Depth)
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")

		if err := os.WriteFile(configPath, []byte(`{invalid yaml`), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("config", configPath)
		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})

	t.Run("returns error for explicit missing config file", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
	})
}

// TestNewProgressFunc tests progress callback construction.
func TestNewProgressFunc(t *testing.T) {
	t.Parallel()

	t.Run("verbose mode disables the bar", func(t *testing.T) {
		t.Parallel()
		if fn := newProgressFunc(true); fn != nil {
			t.Error("expected nil progress func in verbose mode")
		}
	})

	t.Run("non-verbose mode returns a callback", func(t *testing.T) {
		t.Parallel()
		if fn := newProgressFunc(false); fn == nil {
			t.Error("expected non-nil progress func")
		}
	})
}

// TestDefaultOutputPath tests the dated report filename.
func TestDefaultOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		startURL string
		site     string
		want     string
	}{
		{
			name:     "site root uses the host",
			startURL: "https://example.com/",
			site:     "example.com",
			want:     "2026-03-14_example.com_status_report.csv",
		},
		{
			name:     "seed with path uses the last segment",
			startURL: "https://example.com/blog/",
			site:     "example.com",
			want:     "2026-03-14_blog_status_report.csv",
		},
		{
			name:     "deep seed path uses the final segment",
			startURL: "https://example.com/docs/guides",
			site:     "example.com",
			want:     "2026-03-14_guides_status_report.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auditReport := model.NewAuditReport(tt.startURL, tt.site)
			auditReport.StartedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

			if got := defaultOutputPath(auditReport); got != tt.want {
				t.Errorf("defaultOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestOutputReport tests report writing in each format.
func TestOutputReport(t *testing.T) {
	t.Parallel()

	newReport := func() *model.AuditReport {
		auditReport := model.NewAuditReport("https://example.com/", "example.com")
		auditReport.AddRecord(model.ResultRecord{
			SourcePage:   "https://example.com/",
			AnchorText:   "Gone",
			URL:          "https://example.com/gone",
			ResponseCode: "404",
		})
		return auditReport
	}

	t.Run("writes CSV to output file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "report.csv")
		cfg := config.NewConfig()
		cfg.Output = outputPath

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.HasPrefix(string(content), "Page Linked from,Anchor Text,URL (linked),Response Code,Destination URL") {
			t.Errorf("unexpected CSV header: %q", string(content))
		}
		if !strings.Contains(string(content), "https://example.com/gone") {
			t.Error("expected reported URL in CSV output")
		}
	})

	t.Run("writes JSON when configured", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "report.json")
		cfg := config.NewConfig()
		cfg.Output = outputPath
		cfg.JSONReport = true

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(content, &decoded); err != nil {
			t.Fatalf("expected valid JSON report: %v", err)
		}
		if decoded["site"] != "example.com" {
			t.Errorf("expected site example.com, got %v", decoded["site"])
		}
	})

	t.Run("writes Markdown when configured", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "report.md")
		cfg := config.NewConfig()
		cfg.Output = outputPath
		cfg.MarkdownReport = true

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Link Status Report") {
			t.Errorf("expected Markdown heading, got %q", string(content))
		}
	})

	t.Run("creates output directories", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "reports", "march", "report.csv")
		cfg := config.NewConfig()
		cfg.Output = outputPath

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected report file in nested directory")
		}
	})
}
