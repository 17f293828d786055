package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evsmart/core/model"
)

// LoadFeed loads a price feed from a JSON or YAML file.
func LoadFeed(path string) (model.PriceFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PriceFeed{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeFeed(f, ext)
}

// DecodeFeed reads a price feed from r in the given format.
func DecodeFeed(r io.Reader, format string) (model.PriceFeed, error) {
	var feed model.PriceFeed
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&feed); err != nil {
			return feed, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&feed); err != nil {
			return feed, err
		}
	default:
		return feed, fmt.Errorf("unsupported format: %s", format)
	}
	return feed, nil
}
