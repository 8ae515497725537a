package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()

	if c.Judging.MinScore != 1 || c.Judging.MaxScore != 10 {
		t.Fatalf("unexpected score range %d..%d", c.Judging.MinScore, c.Judging.MaxScore)
	}
	if c.Storage.Mode != StorageModePostgres {
		t.Fatalf("unexpected storage mode %q", c.Storage.Mode)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	c.Judging.MinScore = 7
	c.Judging.MaxScore = 3
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for inverted score range")
	}
}

const sampleConfig = `
storage:
  mode: memory
judging:
  maxscore: 5
  minscore: 0
  remarksminlength: 3
cache:
  leaderboardttl: 5s
`

func TestParseConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NMJ_SERVER_LISTENADDRESS", ":9999")

	c, err := ParseConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if c.Storage.Mode != StorageModeMemory {
		t.Fatalf("storage mode: got %q", c.Storage.Mode)
	}
	if c.Judging.MaxScore != 5 || c.Judging.MinScore != 0 {
		t.Fatalf("score range: got %d..%d", c.Judging.MinScore, c.Judging.MaxScore)
	}
	if c.Cache.LeaderboardTTL != 5*time.Second {
		t.Fatalf("leaderboard ttl: got %v", c.Cache.LeaderboardTTL)
	}
	if c.Server.ListenAddress != ":9999" {
		t.Fatalf("listen address: got %q", c.Server.ListenAddress)
	}
}
