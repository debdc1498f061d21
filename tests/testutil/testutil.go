package testutil

import (
	"os"
	"testing"

	"github.com/kendall-kelly/production-tracker-api/config"
)

// MustSetTestEnvironment switches the process to GO_ENV=test and installs a
// default test configuration, so suites never read a developer's .env values
// (real bucket, real database) through config.GetConfig.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("SAFETY CHECK FAILED: GO_ENV is not test")
	}

	cfg := config.Defaults()
	cfg.GoEnv = "test"
	config.SetConfig(cfg)
}
