package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvWithLocalBinFallback ensures the named environment variable is present.
// It first tries the current environment; if the variable is missing it loads
// "$HOME/.local/bin/.env" with non-overwriting semantics and checks again.
// A .env in the working directory is deliberately not consulted.
func LoadEnvWithLocalBinFallback(name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("environment variable %q not set and home directory unresolved", name)
	}
	envPath := filepath.Join(home, ".local", "bin", ".env")
	if info, statErr := os.Stat(envPath); statErr == nil && !info.IsDir() {
		// godotenv.Load does not override variables that are already set.
		_ = godotenv.Load(envPath)
	}

	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("environment variable %q not set; attempted fallback file %s", name, envPath)
}
