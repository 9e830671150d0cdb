package zoo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Entry describes one pretrained checkpoint in the catalog.
	Entry struct {
		ID          string `yaml:"-"`
		Name        string `yaml:"name"`
		Path        string `yaml:"path"`
		URL         string `yaml:"url,omitempty"`
		SHA256      string `yaml:"sha256,omitempty"`
		Description string `yaml:"description,omitempty"`

		callTime time.Time
	}

	catalogFile struct {
		Entries []Entry `yaml:"entries"`
	}
)

// GetCallTime reports when the entry was last used.
func (e *Entry) GetCallTime() time.Time {
	return e.callTime
}

func (e *Entry) touch() {
	e.callTime = time.Now()
}

func (e *Entry) toRecord() map[string]any {
	return map[string]any{
		"_id":         e.ID,
		"name":        e.Name,
		"path":        e.Path,
		"url":         e.URL,
		"sha256":      e.SHA256,
		"description": e.Description,
	}
}

func entryFromRecord(record map[string]any) *Entry {
	e := &Entry{}
	if v, ok := record["_id"].(string); ok {
		e.ID = v
	}
	if v, ok := record["name"].(string); ok {
		e.Name = v
	}
	if v, ok := record["path"].(string); ok {
		e.Path = v
	}
	if v, ok := record["url"].(string); ok {
		e.URL = v
	}
	if v, ok := record["sha256"].(string); ok {
		e.SHA256 = v
	}
	if v, ok := record["description"].(string); ok {
		e.Description = v
	}
	return e
}

func loadCatalog(path string) (map[string]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %v", err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog YAML: %v", err)
	}

	entries := make(map[string]*Entry, len(catalog.Entries))
	for i := range catalog.Entries {
		e := catalog.Entries[i]
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %d missing name", i)
		}
		if _, exists := entries[e.Name]; exists {
			return nil, fmt.Errorf("catalog entry %s declared twice", e.Name)
		}
		entries[e.Name] = &e
	}
	return entries, nil
}
