package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.NegotiationTimeout() != 30*time.Second {
		t.Errorf("Expected 30s negotiation timeout, got %v", cfg.NegotiationTimeout())
	}
	if cfg.StalenessThreshold() != 35*time.Second {
		t.Errorf("Expected 35s staleness threshold, got %v", cfg.StalenessThreshold())
	}
	if cfg.Engine.DefaultRemainingSecs != 3600 {
		t.Errorf("Expected 3600s remaining-time floor, got %d", cfg.Engine.DefaultRemainingSecs)
	}
	if cfg.Engine.SpeedSamples != 5 {
		t.Errorf("Expected 5 speed samples, got %d", cfg.Engine.SpeedSamples)
	}
	if cfg.Upload.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", cfg.Upload.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.NegotiationTimeoutSecs != 30 {
		t.Errorf("Expected defaults for missing file, got %d", cfg.Engine.NegotiationTimeoutSecs)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.conf")
	content := "[engine]\nnegotiation_timeout_secs = 5\nstaleness_threshold_secs = 7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NegotiationTimeout() != 5*time.Second {
		t.Errorf("Expected 5s from file, got %v", cfg.NegotiationTimeout())
	}
	if cfg.StalenessThreshold() != 7*time.Second {
		t.Errorf("Expected 7s from file, got %v", cfg.StalenessThreshold())
	}
	// Untouched section keeps defaults.
	if cfg.Upload.MaxRetries != 3 {
		t.Errorf("Expected default retries, got %d", cfg.Upload.MaxRetries)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.conf")
	content := "[engine]\nnegotiation_timeout_secs = 30\nstaleness_threshold_secs = 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected staleness below negotiation timeout to be rejected")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "engine.conf")

	cfg := DefaultConfig()
	cfg.Engine.NegotiationTimeoutSecs = 12
	cfg.Engine.StalenessThresholdSecs = 20
	cfg.Upload.MaxRetries = 5

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Engine.NegotiationTimeoutSecs != 12 {
		t.Errorf("Expected 12, got %d", loaded.Engine.NegotiationTimeoutSecs)
	}
	if loaded.Upload.MaxRetries != 5 {
		t.Errorf("Expected 5, got %d", loaded.Upload.MaxRetries)
	}
}
