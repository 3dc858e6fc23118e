package configs

import (
	"os"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	os.Unsetenv("WEEKLY_IMAGE_LIMIT")
	os.Unsetenv("MAX_BATCH_SIZE")
	cfg := LoadConfig()
	if cfg.WeeklyImageLimit != 20 {
		t.Fatalf("expected default weekly limit 20, got %d", cfg.WeeklyImageLimit)
	}
	if cfg.MaxBatchSize != 10 {
		t.Fatalf("expected default max batch size 10, got %d", cfg.MaxBatchSize)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	os.Setenv("WEEKLY_IMAGE_LIMIT", "5")
	defer os.Unsetenv("WEEKLY_IMAGE_LIMIT")
	cfg := LoadConfig()
	if cfg.WeeklyImageLimit != 5 {
		t.Fatalf("expected overridden weekly limit 5, got %d", cfg.WeeklyImageLimit)
	}
}
