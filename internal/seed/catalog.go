package seed

import (
	"context"
	_ "embed"
	"fmt"

	"pulsevote/internal/cache"
	"pulsevote/internal/models"
	"pulsevote/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry is one built-in preference.
type CatalogEntry struct {
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`
}

// LoadCatalog parses the embedded preference catalog.
func LoadCatalog() ([]CatalogEntry, error) {
	var doc struct {
		Preferences []CatalogEntry `yaml:"preferences"`
	}
	if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, e := range doc.Preferences {
		if _, err := validation.PreferenceName(e.Name); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Name, err)
		}
		if err := validation.Color(e.Color); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Name, err)
		}
	}
	return doc.Preferences, nil
}

// Preferences upserts the built-in catalog by name and drops the cached
// catalog. Running it twice leaves one row per entry.
func Preferences(db *gorm.DB) error {
	entries, err := LoadCatalog()
	if err != nil {
		return err
	}
	for _, e := range entries {
		pref := models.Preference{
			Name:  e.Name,
			Icon:  validation.Optional(e.Icon),
			Color: validation.Optional(e.Color),
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"icon", "color"}),
		}).Create(&pref).Error
		if err != nil {
			return fmt.Errorf("seed preference %s: %w", e.Name, err)
		}
	}
	cache.InvalidatePreferenceCatalog(context.Background())
	return nil
}
