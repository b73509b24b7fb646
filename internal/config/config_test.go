package config

import (
	"strings"
	"testing"
	"time"
)

// mapBackend is an in-memory Backend for tests.
type mapBackend struct {
	data map[string]any
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: make(map[string]any)}
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return nil
}
func (b *mapBackend) Delete(key string) error { delete(b.data, key); return nil }

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PREPSTAGE_GENAI_API_KEY", "test-key")

	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.GenAI.Model != "gemini-1.5-flash" {
		t.Errorf("model = %q", cfg.GenAI.Model)
	}
	if cfg.User.ID != "local" {
		t.Errorf("user id = %q", cfg.User.ID)
	}
	if cfg.Session.QuestionsPerSection != 5 {
		t.Errorf("questions per section = %d", cfg.Session.QuestionsPerSection)
	}
	if cfg.GenAI.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.GenAI.APIKey)
	}
}

func TestLoadBackendValues(t *testing.T) {
	t.Setenv("PREPSTAGE_GENAI_API_KEY", "test-key")

	b := newMapBackend()
	b.data["server.port"] = 9999
	b.data["user.id"] = "alex"
	b.data["detector.sample_interval"] = "250ms"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9999 || cfg.User.ID != "alex" {
		t.Errorf("backend values not applied: %+v", cfg)
	}
	if got := cfg.Detector.Interval(); got != 250*time.Millisecond {
		t.Errorf("interval = %v", got)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("PREPSTAGE_GENAI_API_KEY", "test-key")
	t.Setenv("PREPSTAGE_SERVER_PORT", "4300")

	b := newMapBackend()
	b.data["server.port"] = 9999

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4300 {
		t.Errorf("port = %d, want env override 4300", cfg.Server.Port)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("PREPSTAGE_GENAI_API_KEY", "")

	_, err := loadWith(newMapBackend())
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "PREPSTAGE_GENAI_API_KEY") {
		t.Errorf("error should name the env var: %v", err)
	}
}

func TestIntervalFallsBackOnGarbage(t *testing.T) {
	c := DetectorConfig{SampleInterval: "not a duration"}
	if got := c.Interval(); got != time.Second {
		t.Errorf("interval = %v, want 1s fallback", got)
	}
	c = DetectorConfig{SampleInterval: "-5s"}
	if got := c.Interval(); got != time.Second {
		t.Errorf("negative interval = %v, want 1s fallback", got)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.GenAI.APIKey = "super-secret"

	for _, info := range ShowAll(cfg) {
		if info.Value == "super-secret" || info.Key == "genai.api_key" {
			t.Errorf("secret leaked via ShowAll: %+v", info)
		}
	}
}

func TestSetKeyUnknown(t *testing.T) {
	if err := SetKey("nope.nothing", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := UnsetKey("nope.nothing"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetKeyRejectsSecret(t *testing.T) {
	if err := SetKey("genai.api_key", "x"); err == nil {
		t.Error("secrets must not be settable via config")
	}
}
