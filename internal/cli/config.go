package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	PlayerID   string
	PlayerFile string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  "http://localhost:8080",
		PlayerFile: defaultPlayerFile(),
		Output:     "text",
	}
}

// LoadPlayerID fills PlayerID from the player file, creating a new identity
// the first time the CLI runs
func (c *Config) LoadPlayerID() error {
	if c.PlayerID != "" {
		return nil
	}

	data, err := os.ReadFile(c.PlayerFile)
	if err == nil {
		c.PlayerID = strings.TrimSpace(string(data))
		if c.PlayerID != "" {
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return c.SavePlayerID(uuid.NewString())
}

// SavePlayerID stores id as this machine's player identity
func (c *Config) SavePlayerID(id string) error {
	c.PlayerID = id

	if err := os.MkdirAll(filepath.Dir(c.PlayerFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.PlayerFile, []byte(id), 0o600)
}

func defaultPlayerFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".topten", "player")
	}
	return filepath.Join(home, ".topten", "player")
}
