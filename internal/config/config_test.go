package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != DefaultListen || cfg.TodayCron != DefaultTodayCron {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ErrorClearDelay != DefaultErrorClearDelay || again.SaveDelay != DefaultSaveDelay {
		t.Errorf("durations did not round-trip: %v %v", again.ErrorClearDelay, again.SaveDelay)
	}
	if len(again.Categories) != 3 || again.Categories[0].Name != "Personal" {
		t.Errorf("categories did not round-trip: %+v", again.Categories)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := strings.Join([]string{
		"listen: 0.0.0.0:9000",
		"error_clear_delay: 3s",
		"today_cron: \"\"",
		"categories:",
		"  - name: Deep Work",
		"    color: \"#123456\"",
		"  - name: Family",
		"    color: pink",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.ErrorClearDelay != 3*time.Second {
		t.Errorf("error_clear_delay = %v", cfg.ErrorClearDelay)
	}
	if cfg.SaveDelay != DefaultSaveDelay {
		t.Errorf("save_delay should default, got %v", cfg.SaveDelay)
	}
	if cfg.TodayCron != "" {
		t.Errorf("explicitly empty today_cron should stay empty, got %q", cfg.TodayCron)
	}

	seed := cfg.SeedCategories()
	if len(seed) != 2 || seed[0].ID != "deepwork" || seed[1].Color != "pink" {
		t.Errorf("seed categories = %+v", seed)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":     "listen: [",
		"bad timezone": "timezone: Mars/Olympus",
		"dup category": "categories:\n  - name: Work\n  - name: work\n",
		"import url":   "import:\n  - id: team\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Location() != time.Local {
		t.Error("empty timezone should use time.Local")
	}
	cfg.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Errorf("location = %s", cfg.Location())
	}
}
