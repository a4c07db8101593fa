// Package channels loads the channel watchlist from a YAML file.
package channels

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one watched channel in the watchlist file.
type Entry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"` // optional display name, purely informational
}

// Config mirrors the watchlist file layout:
//
//	channels:
//	  - id: UCuAXFkgsw1L7xaCfnd5JJOw
//	    name: Rick Astley
type Config struct {
	Channels []Entry `yaml:"channels"`
}

// Loader handles loading and parsing of the channels watchlist file.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads and parses the watchlist. A file that parses but lists no
// channels is an error; an empty watchlist is a misconfiguration, not a
// valid state to silently run with.
func (l *Loader) Load() ([]Entry, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse channels yaml: %w", err)
	}

	if len(config.Channels) == 0 {
		return nil, fmt.Errorf("no channels found in %s", l.filePath)
	}
	for i, entry := range config.Channels {
		if entry.ID == "" {
			return nil, fmt.Errorf("channel entry %d has no id", i)
		}
	}

	return config.Channels, nil
}

// IDs returns just the channel IDs of the loaded entries.
func IDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
