// Package dashboard loads the static farm dashboard content from YAML.
package dashboard

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Status is one placeholder status line shown on the dashboard.
type Status struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Slice configures one chart series.
type Slice struct {
	Name   string `yaml:"name" json:"name"`
	Metric string `yaml:"metric" json:"metric"`
	Color  string `yaml:"color" json:"color"`
}

// Config is the top-level YAML structure.
type Config struct {
	Statuses   []Status `yaml:"statuses"`
	PlantTypes []string `yaml:"plant_types"`
	Chart      []Slice  `yaml:"chart"`
}

// Registry holds the loaded dashboard content. It is read-only after Load.
type Registry struct {
	byName     map[string]Status
	order      []string
	plantTypes []string
	chart      []Slice
}

// Default returns the built-in dashboard content.
func Default() Config {
	return Config{
		Statuses: []Status{
			{Name: "weather", Label: "Weather Update", Value: "Clear skies, 25°C, slight breeze"},
			{Name: "equipment", Label: "Equipment Status", Value: "All systems operational"},
			{Name: "crop", Label: "Crop Status", Value: "Crops are healthy"},
			{Name: "community", Label: "Community Update", Value: "New farming tips available in the community section."},
		},
		PlantTypes: []string{"Rose", "Cactus"},
		Chart: []Slice{
			{Name: "pH", Metric: MetricPH, Color: "#ff6666"},
			{Name: "Moisture", Metric: MetricMoisture, Color: "#66cc66"},
			{Name: "Temperature", Metric: MetricTemperature, Color: "#3399ff"},
		},
	}
}

// Load reads the YAML file at path and returns a Registry.
// If the file does not exist, Load returns the default content (not an error).
// Sections missing from the file fall back to their defaults.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(Default()), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	def := Default()
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = def.Statuses
	}
	if len(cfg.PlantTypes) == 0 {
		cfg.PlantTypes = def.PlantTypes
	}
	if len(cfg.Chart) == 0 {
		cfg.Chart = def.Chart
	}
	return New(cfg), nil
}

// New builds a Registry from cfg. Later statuses override earlier ones with
// the same name.
func New(cfg Config) *Registry {
	r := &Registry{
		byName:     make(map[string]Status, len(cfg.Statuses)),
		plantTypes: append([]string(nil), cfg.PlantTypes...),
		chart:      append([]Slice(nil), cfg.Chart...),
	}
	for _, s := range cfg.Statuses {
		if _, seen := r.byName[s.Name]; !seen {
			r.order = append(r.order, s.Name)
		}
		r.byName[s.Name] = s
	}
	return r
}

// Status returns a status by name.
func (r *Registry) Status(name string) (Status, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Statuses returns all statuses in definition order.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// PlantTypes returns the suggested plant types.
func (r *Registry) PlantTypes() []string {
	return append([]string(nil), r.plantTypes...)
}
