package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/soilsense/pkg/models"
)

func TestLoadMissingFile(t *testing.T) {
	r, err := Load("/nonexistent/path/that/does/not/exist.yml")
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, []string{"weather", "equipment", "crop", "community"}, statusNames(r))
	s, ok := r.Status("equipment")
	require.True(t, ok)
	assert.Equal(t, "All systems operational", s.Value)
	assert.Equal(t, []string{"Rose", "Cactus"}, r.PlantTypes())
}

func TestLoadValidYAML(t *testing.T) {
	const yamlContent = `
statuses:
  - name: weather
    label: Weather
    value: Light rain
  - name: irrigation
    label: Irrigation
    value: Scheduled for 06:00
plant_types: [Tomato, Basil]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0600))

	r, err := Load(path)
	require.NoError(t, err)

	all := r.Statuses()
	require.Len(t, all, 2)
	assert.Equal(t, "weather", all[0].Name)
	assert.Equal(t, "Light rain", all[0].Value)
	assert.Equal(t, "irrigation", all[1].Name)

	_, ok := r.Status("crop")
	assert.False(t, ok)

	assert.Equal(t, []string{"Tomato", "Basil"}, r.PlantTypes())
	// Chart section was omitted and falls back to defaults.
	assert.Len(t, r.Chart(models.DefaultReading), 3)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte(":\tinvalid:\tyaml:\t[unclosed"), 0600))

	r, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestStatuses_DefinitionOrder(t *testing.T) {
	r := New(Config{Statuses: []Status{{Name: "zebra"}, {Name: "alpha"}, {Name: "mango"}}})
	var names []string
	for _, st := range r.Statuses() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"zebra", "alpha", "mango"}, names)
}

func TestNew_DuplicateStatusKeepsFirstPosition(t *testing.T) {
	r := New(Config{Statuses: []Status{
		{Name: "crop", Value: "old"},
		{Name: "weather", Value: "sun"},
		{Name: "crop", Value: "new"},
	}})

	all := r.Statuses()
	require.Len(t, all, 2)
	assert.Equal(t, "crop", all[0].Name)
	assert.Equal(t, "new", all[0].Value)
}

func TestRegistryIsImmutable(t *testing.T) {
	cfg := Default()
	r := New(cfg)
	cfg.PlantTypes[0] = "Weed"
	cfg.Chart[0].Color = "#000000"

	assert.Equal(t, "Rose", r.PlantTypes()[0])
	assert.Equal(t, "#ff6666", r.Chart(models.DefaultReading)[0].Color)

	got := r.PlantTypes()
	got[0] = "Weed"
	assert.Equal(t, "Rose", r.PlantTypes()[0])
}

func TestChart(t *testing.T) {
	r := New(Default())

	points := r.Chart(models.Reading{PH: 6.42, Moisture: 55, Temperature: 21})
	assert.Equal(t, []ChartPoint{
		{Name: "pH", Value: 6.42, Color: "#ff6666"},
		{Name: "Moisture", Value: 55, Color: "#66cc66"},
		{Name: "Temperature", Value: 21, Color: "#3399ff"},
	}, points)
}

func TestChart_SkipsUnknownMetric(t *testing.T) {
	r := New(Config{Chart: []Slice{{Name: "x", Metric: "salinity"}, {Name: "pH", Metric: MetricPH}}})
	points := r.Chart(models.DefaultReading)
	require.Len(t, points, 1)
	assert.Equal(t, "pH", points[0].Name)
}

func statusNames(r *Registry) []string {
	var out []string
	for _, s := range r.Statuses() {
		out = append(out, s.Name)
	}
	return out
}
