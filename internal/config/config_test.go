package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"social-content-ai/internal/domain/model"
)

const sample = `
log:
  level: debug
store:
  database_uri: postgres://u:p@localhost:5432/app
redis:
  url: localhost:6379
providers:
  openai:
    credential: ${TEST_OPENAI_KEY}
    model: gpt-4o-mini
  gemini:
    model: gemini-2.0-flash
limits:
  tier:
    free:
      daily: 3
    premium:
      daily: unbounded
engine:
  retry:
    backoff_ms: [100, 200]
batch:
  poll_interval: 250ms
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	cfg, err := Parse([]byte(sample), false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	t.Run("env expansion", func(t *testing.T) {
		if got := cfg.Providers["openai"].Credential; got != "sk-from-env" {
			t.Errorf("credential = %q", got)
		}
		if cfg.Providers["gemini"].Credential != "" {
			t.Error("unset credential must stay empty")
		}
	})

	t.Run("tier limits", func(t *testing.T) {
		l := cfg.TierLimits()
		if l.DailyLimit(model.TierFree) != 3 {
			t.Errorf("free = %d", l.DailyLimit(model.TierFree))
		}
		if l.DailyLimit(model.TierPremium) != model.Unlimited {
			t.Errorf("premium = %d", l.DailyLimit(model.TierPremium))
		}
		if l.DailyLimit(model.TierAdmin) != model.Unlimited {
			t.Error("unconfigured tiers keep their defaults")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		if cfg.PerCallDeadline() != 30*time.Second {
			t.Errorf("deadline = %v", cfg.PerCallDeadline())
		}
		if cfg.Engine.Retry.MaxAttempts != 3 || cfg.Engine.MaxConcurrency != 64 || cfg.Engine.CatalogSyncInterval != 5*time.Minute {
			t.Errorf("engine defaults not applied: %+v", cfg.Engine)
		}
		if b := cfg.Backoff(); len(b) != 2 || b[1] != 200*time.Millisecond {
			t.Errorf("backoff = %v", b)
		}
		if cfg.Batch.PollInterval != 250*time.Millisecond || cfg.Batch.Workers != 4 || cfg.Batch.RecoverInterval != cfg.Batch.LockTTL {
			t.Errorf("batch = %+v", cfg.Batch)
		}
		if cfg.Idempotency.Window != 10*time.Minute {
			t.Errorf("window = %v", cfg.Idempotency.Window)
		}
	})
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		dev  bool
		want string
	}{
		{"no providers", "store:\n  database_uri: x\nredis:\n  url: y\n", false, "providers"},
		{"database required outside dev", "providers:\n  echo: {}\nredis:\n  url: y\n", false, "database_uri"},
		{"bad daily limit", "providers:\n  echo: {}\nlimits:\n  tier:\n    free:\n      daily: lots\n", true, "daily limit"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.yaml), c.dev)
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("expected error containing %q, got %v", c.want, err)
			}
		})
	}

	t.Run("dev mode needs no stores", func(t *testing.T) {
		if _, err := Parse([]byte("providers:\n  echo: {}\n"), true); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("providers:\n  echo: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, true)
	if err != nil || !cfg.Runtime.Dev {
		t.Fatalf("Load: %+v, %v", cfg, err)
	}
}
