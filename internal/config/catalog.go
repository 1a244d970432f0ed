package config

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile used by chargerfw.
const DefaultProfile = "charger"

//go:embed profiles/charger.yaml
var profilesYAML []byte

// catalogContainer is for YAML unmarshaling
type catalogContainer struct {
	Profiles []*Profile `yaml:"profiles"`
}

// Catalog holds all known device profiles.
type Catalog struct {
	Profiles []*Profile

	index map[string]*Profile
}

var (
	globalCatalog     *Catalog
	globalCatalogOnce sync.Once
	globalCatalogErr  error
)

// LoadCatalog loads the embedded profile catalog.
// The catalog is parsed only once; later calls return the same instance.
func LoadCatalog() (*Catalog, error) {
	globalCatalogOnce.Do(func() {
		globalCatalog, globalCatalogErr = ParseCatalog(profilesYAML)
	})
	return globalCatalog, globalCatalogErr
}

// ParseCatalog decodes and validates a profile catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var container catalogContainer
	if err := yaml.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("failed to parse profile catalog: %w", err)
	}

	if len(container.Profiles) == 0 {
		return nil, fmt.Errorf("profile catalog is empty")
	}

	catalog := &Catalog{
		Profiles: container.Profiles,
		index:    make(map[string]*Profile, len(container.Profiles)),
	}

	for _, p := range container.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := catalog.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		catalog.index[p.Name] = p
	}

	return catalog, nil
}

// Get retrieves a profile by name.
func (c *Catalog) Get(name string) (*Profile, bool) {
	p, ok := c.index[name]
	return p, ok
}

// Load returns the UpdateConfig of the default charger profile.
func Load() (UpdateConfig, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return UpdateConfig{}, err
	}

	p, ok := catalog.Get(DefaultProfile)
	if !ok {
		return UpdateConfig{}, fmt.Errorf("profile %q not found in catalog", DefaultProfile)
	}

	return p.UpdateConfig(), nil
}
