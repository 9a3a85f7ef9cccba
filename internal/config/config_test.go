package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_UnknownStorageBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "redis"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestValidate_DynamoDBNeedsTable(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Table = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty table name")
	}
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}

func TestValidate_MinConfidence_Bounds(t *testing.T) {
	cfg := Defaults()
	cfg.Vision.MinConfidence = 101
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for minConfidence=101")
	}

	cfg.Vision.MinConfidence = 0
	if err := Validate(cfg); err != nil {
		t.Fatalf("minConfidence=0 should be valid: %v", err)
	}
	cfg.Vision.MinConfidence = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("minConfidence=100 should be valid: %v", err)
	}
}

func TestValidate_DownloadTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Vision.DownloadTimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for downloadTimeoutSeconds=0")
	}
}

func TestValidate_ModelProvider(t *testing.T) {
	for _, p := range []string{"bedrock", "anthropic", "openai"} {
		cfg := Defaults()
		cfg.Model.Provider = p
		if err := Validate(cfg); err != nil {
			t.Fatalf("provider %q should be valid: %v", p, err)
		}
	}

	cfg := Defaults()
	cfg.Model.Provider = "ollama"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestValidate_BedrockModelIDWithOtherProvider(t *testing.T) {
	for _, p := range []string{"anthropic", "openai"} {
		cfg := Defaults()
		cfg.Model.Provider = p
		cfg.Model.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
		if err := Validate(cfg); err == nil {
			t.Fatalf("provider %q should reject a Bedrock model id", p)
		}
	}

	cfg := Defaults()
	cfg.Model.Provider = "anthropic"
	cfg.Model.ModelID = "claude-3-5-haiku-latest"
	if err := Validate(cfg); err != nil {
		t.Fatalf("native anthropic model id should be valid: %v", err)
	}
}

func TestValidate_SwitchingProviderFromDefaults(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "model.provider", "openai"); err != nil {
		t.Fatalf("set provider: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults with provider=openai should be valid: %v", err)
	}
	if cfg.Model.ModelID != "" {
		t.Fatalf("expected no Bedrock model id to carry over, got %q", cfg.Model.ModelID)
	}
}

func TestValidate_MaxTokens(t *testing.T) {
	cfg := Defaults()
	cfg.Model.MaxTokens = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxTokens=0")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Gateway.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Storage.Backend = "sqlite"
	original.Storage.DBPath = filepath.Join(dir, "todo.db")

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Storage.Backend != "sqlite" {
		t.Fatalf("expected 'sqlite', got %q", loaded.Storage.Backend)
	}
}

func TestLoadSave_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Defaults()
	original.Model.Provider = "openai"
	original.Model.ModelID = "gpt-4o-mini"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Model.Provider != "openai" || loaded.Model.ModelID != "gpt-4o-mini" {
		t.Fatalf("unexpected model config: %+v", loaded.Model)
	}
	if loaded.Vision.MaxLabels != 10 {
		t.Fatalf("expected maxLabels 10, got %d", loaded.Vision.MaxLabels)
	}
}

func TestLoad_YAMLPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := "storage:\n  table: Other-Table\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Table != "Other-Table" {
		t.Fatalf("expected 'Other-Table', got %q", cfg.Storage.Table)
	}
	if cfg.Storage.Backend != "dynamodb" {
		t.Fatalf("backend default lost: %q", cfg.Storage.Backend)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"model": {"maxTokens": 0}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for maxTokens=0")
	}
}

func TestLoadOrDefaults_MissingFile(t *testing.T) {
	cfg, found, err := LoadOrDefaults(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected found=false for a missing file")
	}
	if cfg.Storage.Table != "AI-Assistant-Users" {
		t.Fatalf("expected default table, got %q", cfg.Storage.Table)
	}
}

func TestLoadOrDefaults_InvalidFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{"), 0o644)
	if _, _, err := LoadOrDefaults(path); err == nil {
		t.Fatal("expected parse error to be returned, not defaults")
	}
}

// --- ApplyEnv ---

func TestApplyEnv_TableAndModel(t *testing.T) {
	t.Setenv("TODO_TABLE", "Staging-Users")
	t.Setenv("MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0")

	cfg := Defaults()
	ApplyEnv(cfg)
	if cfg.Storage.Table != "Staging-Users" {
		t.Fatalf("expected table override, got %q", cfg.Storage.Table)
	}
	if cfg.Model.ModelID != "anthropic.claude-3-sonnet-20240229-v1:0" {
		t.Fatalf("expected model override, got %q", cfg.Model.ModelID)
	}
}

func TestApplyEnv_UnsetKeepsDefaults(t *testing.T) {
	t.Setenv("TODO_TABLE", "")
	t.Setenv("MODEL_ID", "")

	cfg := Defaults()
	ApplyEnv(cfg)
	if cfg.Storage.Table != "AI-Assistant-Users" {
		t.Fatalf("expected default table, got %q", cfg.Storage.Table)
	}
	if cfg.Model.ModelID != "" {
		t.Fatalf("expected provider default model, got %q", cfg.Model.ModelID)
	}
}

func TestApplyEnv_ProviderAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg := Defaults()
	cfg.Model.Provider = "openai"
	ApplyEnv(cfg)
	if cfg.Model.APIKey != "sk-test" {
		t.Fatalf("expected key from env, got %q", cfg.Model.APIKey)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "storage.table")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "AI-Assistant-Users" {
		t.Fatalf("expected 'AI-Assistant-Users', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestGetByPath_Section(t *testing.T) {
	val, err := GetByPath(Defaults(), "gateway")
	if err != nil {
		t.Fatalf("get section: %v", err)
	}
	gw, ok := val.(GatewayConfig)
	if !ok || gw.Port != 8080 {
		t.Fatalf("expected gateway section, got %#v", val)
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "vision.maxLabels", "5"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Vision.MaxLabels != 5 {
		t.Fatalf("expected 5, got %d", cfg.Vision.MaxLabels)
	}
	if err := SetByPath(cfg, "gateway.port", "9090"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if cfg.Gateway.Port != 9090 {
		t.Fatalf("expected 9090, got %d", cfg.Gateway.Port)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "metrics.enabled", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics.enabled=true")
	}
}

func TestSetByPath_FloatConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "model.ratePerMinute", "7.5"); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if cfg.Model.RatePerMinute != 7.5 {
		t.Fatalf("expected 7.5, got %v", cfg.Model.RatePerMinute)
	}
	if err := SetByPath(cfg, "vision.minConfidence", "90"); err != nil {
		t.Fatalf("set whole-number float: %v", err)
	}
	if cfg.Vision.MinConfidence != 90 {
		t.Fatalf("expected 90, got %v", cfg.Vision.MinConfidence)
	}
}

func TestSetByPath_StringFieldsKeepNumericText(t *testing.T) {
	cfg := Defaults()
	cases := []struct {
		path  string
		value string
		got   func() string
	}{
		{"gateway.secret", "12345678", func() string { return cfg.Gateway.Secret }},
		{"aws.profile", "2024", func() string { return cfg.AWS.Profile }},
		{"storage.table", "true", func() string { return cfg.Storage.Table }},
		{"model.modelId", "1.5", func() string { return cfg.Model.ModelID }},
	}
	for _, tc := range cases {
		if err := SetByPath(cfg, tc.path, tc.value); err != nil {
			t.Fatalf("set %s: %v", tc.path, err)
		}
		if got := tc.got(); got != tc.value {
			t.Fatalf("%s: expected %q, got %q", tc.path, tc.value, got)
		}
	}
}

func TestSetByPath_UnknownPathRejected(t *testing.T) {
	cfg := Defaults()
	for _, path := range []string{"storage.tabel", "nosuch.key", "storage.table.extra", ""} {
		if err := SetByPath(cfg, path, "x"); err == nil {
			t.Fatalf("expected error for path %q", path)
		}
	}
	if cfg.Storage.Table != "AI-Assistant-Users" {
		t.Fatalf("table changed by a rejected set: %q", cfg.Storage.Table)
	}
}

func TestSetByPath_SectionRejected(t *testing.T) {
	if err := SetByPath(Defaults(), "storage", "x"); err == nil {
		t.Fatal("expected error when setting a whole section")
	}
}

func TestSetByPath_BadValueForType(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "gateway.port", "eighty"); err == nil {
		t.Fatal("expected error for non-integer port")
	}
	if err := SetByPath(cfg, "metrics.enabled", "maybe"); err == nil {
		t.Fatal("expected error for non-boolean flag")
	}
	if cfg.Gateway.Port != 8080 {
		t.Fatalf("port changed by a rejected set: %d", cfg.Gateway.Port)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Model.APIKey = "sk-1234567890abcdefghijklmnop"
	cfg.Gateway.Secret = "webhook-secret-12345678"

	sanitized := Sanitize(cfg)

	if sanitized.Model.APIKey == cfg.Model.APIKey {
		t.Fatal("API key should be masked")
	}
	if sanitized.Gateway.Secret == cfg.Gateway.Secret {
		t.Fatal("gateway secret should be masked")
	}
	if cfg.Model.APIKey != "sk-1234567890abcdefghijklmnop" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Secret = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Gateway.Secret != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Gateway.Secret)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	paths := ListPaths(Defaults())
	for _, expected := range []string{"storage.table", "model.modelId", "vision.minConfidence", "gateway.secret"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
	if _, ok := paths["storage"]; ok {
		t.Error("sections should not be listed as leaves")
	}
}

func TestListPaths_EveryPathIsSettable(t *testing.T) {
	cfg := Defaults()
	for path, val := range ListPaths(cfg) {
		if err := SetByPath(cfg, path, fmt.Sprint(val)); err != nil {
			t.Errorf("listed path %s is not settable: %v", path, err)
		}
	}
}

func TestSortedPaths_Ordered(t *testing.T) {
	paths := SortedPaths(Defaults())
	if !sort.StringsAreSorted(paths) {
		t.Fatalf("paths not sorted: %v", paths)
	}
	if len(paths) != len(ListPaths(Defaults())) {
		t.Fatalf("expected %d paths, got %d", len(ListPaths(Defaults())), len(paths))
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	result := ExpandEnvVars(`{"apiKey": "${TEST_API_KEY}"}`)
	expected := `{"apiKey": "sk-abc123"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"port": "${NONEXISTENT_VAR_12345:-8080}"}`)
	expected := `{"port": "8080"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_ASSISTBOT_TABLE", "Env-Table")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"storage": {"backend": "dynamodb", "table": "${TEST_ASSISTBOT_TABLE}"}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Table != "Env-Table" {
		t.Fatalf("expected table 'Env-Table', got %q", cfg.Storage.Table)
	}
}
