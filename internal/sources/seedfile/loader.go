package seedfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the wikis.yaml seed file
type Loader struct {
	filePath string
}

// NewLoader creates a new seed file loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the wikis.yaml file. Credentials may reference
// environment variables ($VAR or ${VAR}); they are expanded so the file
// itself can stay free of secrets.
func (l *Loader) Load() (*SeedConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var config SeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	return &config, nil
}
