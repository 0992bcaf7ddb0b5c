package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSource is one RSS source to monitor.
type FeedSource struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

type sourcesFile struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// DefaultSources is the built-in source list used when no sources file exists.
var DefaultSources = []FeedSource{
	{Name: "El Economista", URL: "https://www.eleconomista.com.mx/rss/ultimas-noticias"},
	{Name: "Milenio", URL: "https://www.milenio.com/rss"},
	{Name: "Vanguardia", URL: "https://vanguardia.com.mx/rss.xml"},
	{Name: "Expansion", URL: "https://expansion.mx/rss"},
}

// LoadSources reads the feed list from a YAML file. A missing file is not an
// error: the built-in defaults are returned so a fresh checkout runs as-is.
func LoadSources(path string) ([]FeedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSources, nil
		}
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	sources := make([]FeedSource, 0, len(f.Feeds))
	for _, s := range f.Feeds {
		if s.Name == "" || s.URL == "" {
			continue
		}
		sources = append(sources, s)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("sources file %s has no usable feeds", path)
	}
	return sources, nil
}
