package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func tokenFilePath(dataDir string) string {
	return filepath.Join(dataDir, "api-token")
}

// EnsureAPIToken returns the bearer token protecting the local API. An
// explicitly configured token wins; otherwise a generated token is persisted
// in the data dir so the CLI and server agree across restarts.
func EnsureAPIToken(cfg Config) (string, error) {
	if cfg.Server.APIToken != "" {
		return cfg.Server.APIToken, nil
	}

	path := tokenFilePath(cfg.Storage.DataDir)
	if data, err := os.ReadFile(path); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("writing api token: %w", err)
	}
	return token, nil
}

// APIToken reads the bearer token without generating one; used by the CLI
// client.
func APIToken(cfg Config) (string, error) {
	if cfg.Server.APIToken != "" {
		return cfg.Server.APIToken, nil
	}
	data, err := os.ReadFile(tokenFilePath(cfg.Storage.DataDir))
	if err != nil {
		return "", fmt.Errorf("reading api token (has the server been started?): %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("api token file is empty")
	}
	return token, nil
}
