package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMBaseURL != DefaultConfig().LLMBaseURL {
		t.Fatalf("LLMBaseURL = %q, want %q", cfg.LLMBaseURL, DefaultConfig().LLMBaseURL)
	}
	if cfg.LLMModel != DefaultConfig().LLMModel {
		t.Fatalf("LLMModel = %q, want %q", cfg.LLMModel, DefaultConfig().LLMModel)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"llm_model": "qwen2.5", "llm_timeout_secs": 30}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMModel != "qwen2.5" {
		t.Fatalf("LLMModel = %q, want %q", cfg.LLMModel, "qwen2.5")
	}
	if cfg.LLMTimeoutSecs != 30 {
		t.Fatalf("LLMTimeoutSecs = %d, want 30", cfg.LLMTimeoutSecs)
	}
	// Untouched scalar keeps its default
	if cfg.LLMBaseURL != DefaultConfig().LLMBaseURL {
		t.Fatalf("LLMBaseURL = %q, want default %q", cfg.LLMBaseURL, DefaultConfig().LLMBaseURL)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["tracker_regenerate", "session_delete"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "tracker_regenerate" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "tracker_regenerate")
	}
	if cfg.DisabledTools[1] != "session_delete" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "session_delete")
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 0 {
		t.Fatalf("DisabledTools = %v, want nil or empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	// Global config
	globalConfig := `{"llm_model": "llama3.1:70b", "disabled_tools": ["tracker_regenerate"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Repo config at repoRoot/.pttracker/config.json
	repoDir := filepath.Join(repoRoot, ".pttracker")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"llm_model": "qwen2.5", "disabled_tools": ["session_delete"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.LLMModel != "qwen2.5" {
		t.Errorf("LLMModel = %q, want %q (repo override)", cfg.LLMModel, "qwen2.5")
	}

	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir() // No config file

	globalConfig := `{"llm_model": "llama3.1:70b", "disabled_tools": ["tracker_regenerate"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.LLMModel != "llama3.1:70b" {
		t.Errorf("LLMModel = %q, want %q", cfg.LLMModel, "llama3.1:70b")
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "tracker_regenerate" {
		t.Errorf("DisabledTools = %v, want [tracker_regenerate]", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_OnlyRepo(t *testing.T) {
	globalDir := t.TempDir() // No config file
	repoRoot := t.TempDir()

	// Repo config at repoRoot/.pttracker/config.json
	repoDir := filepath.Join(repoRoot, ".pttracker")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["session_delete", "tracker_reset"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Default value preserved
	if cfg.LLMBaseURL != "http://localhost:11434" {
		t.Errorf("LLMBaseURL = %q, want default", cfg.LLMBaseURL)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// All defaults
	if cfg.LLMBaseURL != "http://localhost:11434" {
		t.Errorf("LLMBaseURL = %q, want default", cfg.LLMBaseURL)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{LLMModel: "llama3.1", DBMaxOpenConns: 5}
	overlay := &Config{LLMModel: "qwen2.5"} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.LLMModel != "qwen2.5" {
		t.Errorf("LLMModel = %q, want %q (overlay)", result.LLMModel, "qwen2.5")
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"tracker_regenerate", "session_delete"}}
	overlay := &Config{DisabledTools: []string{"session_delete", "tracker_reset"}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	// Check all three are present
	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"tracker_regenerate", "session_delete", "tracker_reset"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestMerge_AllowedPaths(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/srv/exports", "/tmp/shared"}}
	overlay := &Config{AllowedPaths: []string{"/tmp/shared", "/home/kuma/backups"}}

	result := Merge(base, overlay)

	if len(result.AllowedPaths) != 3 {
		t.Errorf("AllowedPaths length = %d, want 3 (merged, deduped)", len(result.AllowedPaths))
	}
	has := make(map[string]bool)
	for _, p := range result.AllowedPaths {
		has[p] = true
	}
	for _, want := range []string{"/srv/exports", "/tmp/shared", "/home/kuma/backups"} {
		if !has[want] {
			t.Errorf("AllowedPaths missing %q", want)
		}
	}
}

func TestMerge_AllowUnsafePaths(t *testing.T) {
	// True from either side survives the merge.
	cases := []struct {
		base, overlay, want bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}
	for _, tc := range cases {
		result := Merge(&Config{AllowUnsafePaths: tc.base}, &Config{AllowUnsafePaths: tc.overlay})
		if result.AllowUnsafePaths != tc.want {
			t.Errorf("Merge(%v, %v).AllowUnsafePaths = %v, want %v",
				tc.base, tc.overlay, result.AllowUnsafePaths, tc.want)
		}
	}
}

func TestFindRepoConfig_InCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, ".pttracker")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	found := FindRepoConfig(tmpDir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.pttracker/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, ".pttracker")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(repoDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Start from subdir, should find config in parent
	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	// No .pttracker directory

	found := FindRepoConfig(tmpDir)
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	// Create: tmpDir/.pttracker/config.json with disabled_tools
	//         tmpDir/subdir/
	tmpDir := t.TempDir()
	globalDir := t.TempDir() // Separate global dir

	repoDir := filepath.Join(tmpDir, ".pttracker")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["tracker_regenerate"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Load from subdir, should find repo config in parent
	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "tracker_regenerate" {
		t.Errorf("DisabledTools = %v, want [tracker_regenerate]", cfg.DisabledTools)
	}
}
