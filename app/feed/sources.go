package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one news feed definition loaded from the feeds directory.
// The source name is derived from the filename.
type Source struct {
	Name     string `yaml:"-"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Enabled  bool   `yaml:"enabled"`
}

// LoadSources reads all .yml source definitions from dir. A missing
// directory is not an error; the service just has nothing to fetch.
func LoadSources(dir string) ([]Source, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	var sources []Source
	for _, file := range files {
		source, err := loadSource(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}
		sources = append(sources, source)
	}

	return sources, nil
}

func loadSource(file string) (Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read source file: %w", err)
	}

	source := Source{Enabled: true}
	if err := yaml.Unmarshal(data, &source); err != nil {
		return Source{}, fmt.Errorf("failed to parse source file: %w", err)
	}

	if source.URL == "" {
		return Source{}, fmt.Errorf("source definition is missing a url")
	}

	source.Name = strings.TrimSuffix(filepath.Base(file), ".yml")

	return source, nil
}
