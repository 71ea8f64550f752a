package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config drives the replay runner: where the ledger lives, which genesis
// document seeds it and which program identity instructions target.
type Config struct {
	DataDir     string `toml:"DataDir"`
	GenesisFile string `toml:"GenesisFile"`
	ProgramID   string `toml:"ProgramID"`
	Env         string `toml:"Env"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Unknown keys are rejected so typos surface instead of
// silently applying defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %s", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir(path)
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir: defaultDataDir(path),
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultDataDir(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "ledger")
}
