// Package library simulates the music-service account operations: connecting
// accounts, reading the source library and copying items to the destination.
// Nothing here talks to a real provider.
package library

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"playlist-porter/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the canned content served for every connected account.
type Catalog struct {
	Users      map[model.Role]model.User `yaml:"users"`
	Playlists  []model.Playlist          `yaml:"playlists"`
	LikedSongs []model.Track             `yaml:"liked_songs"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for _, role := range []model.Role{model.RoleSource, model.RoleDestination} {
		if u, ok := c.Users[role]; !ok || u.ID == "" {
			return fmt.Errorf("missing %s user", role)
		}
	}
	seen := make(map[string]bool)
	for _, p := range c.Playlists {
		if p.ID == "" {
			return errors.New("playlist without id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate id %q", p.ID)
		}
		seen[p.ID] = true
	}
	for _, s := range c.LikedSongs {
		if s.ID == "" {
			return errors.New("song without id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func (c *Catalog) hasPlaylist(id string) bool {
	for _, p := range c.Playlists {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (c *Catalog) hasSong(id string) bool {
	for _, s := range c.LikedSongs {
		if s.ID == id {
			return true
		}
	}
	return false
}
