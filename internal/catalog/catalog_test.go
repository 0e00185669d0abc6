package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCatalog = `{
  "pricing": {
    "base_cost_per_km": 10,
    "duration_cost_per_hour": 100,
    "urgent_pickup_multiplier": 1.3,
    "loader_price_per_hour": 500
  },
  "vehicles": [
    {"id": 1, "name": "Van", "body_type": "van", "price_per_hour": 800, "price_per_km": 25, "base_price": 500, "max_passengers": 2, "max_loaders": 1},
    {"id": 2, "name": "Truck", "body_type": "crate", "price_per_hour": 1500, "price_per_km": 40, "base_price": 1200, "is_available": false}
  ]
}`

func TestDecode_AppliesDefaults(t *testing.T) {
	snap, err := Decode(strings.NewReader(minimalCatalog))
	require.NoError(t, err)

	assert.Equal(t, 10.0, snap.Pricing.CityCostPerKm)
	assert.Equal(t, 10.0, snap.Pricing.OutsideCostPerKm)
	assert.Equal(t, 25.0, snap.Pricing.ZoneDetection.CityRadiusKm)
	assert.Equal(t, Limits{MinDurationHours: 1, MaxDurationHours: 24, MaxPassengers: 20, MaxLoaders: 10}, snap.Limits)

	require.Len(t, snap.Vehicles, 2)
	assert.True(t, snap.Vehicles[0].IsAvailable())
	assert.False(t, snap.Vehicles[1].IsAvailable())
	assert.Equal(t, BodyAny, snap.Vehicles[1].BodyType)

	avail := snap.AvailableVehicles()
	require.Len(t, avail, 1)
	assert.Equal(t, 1, avail[0].ID)

	_, ok := snap.VehicleByID(3)
	assert.False(t, ok)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing pricing", `{"vehicles": [{"id": 1, "name": "Van"}]}`},
		{"missing loader price", `{"pricing": {"base_cost_per_km": 1, "duration_cost_per_hour": 1, "urgent_pickup_multiplier": 1}, "vehicles": [{"id": 1, "name": "Van"}]}`},
		{"empty vehicles", `{"pricing": {"base_cost_per_km": 1, "duration_cost_per_hour": 1, "urgent_pickup_multiplier": 1, "loader_price_per_hour": 1}, "vehicles": []}`},
		{"duplicate ids", `{"pricing": {"base_cost_per_km": 1, "duration_cost_per_hour": 1, "urgent_pickup_multiplier": 1, "loader_price_per_hour": 1}, "vehicles": [{"id": 1, "name": "A"}, {"id": 1, "name": "B"}]}`},
		{"negative rate", `{"pricing": {"base_cost_per_km": -1, "duration_cost_per_hour": 1, "urgent_pickup_multiplier": 1, "loader_price_per_hour": 1}, "vehicles": [{"id": 1, "name": "A"}]}`},
		{"multiplier below one", `{"pricing": {"base_cost_per_km": 1, "duration_cost_per_hour": 1, "urgent_pickup_multiplier": 0.5, "loader_price_per_hour": 1}, "vehicles": [{"id": 1, "name": "A"}]}`},
		{"inverted limits", `{"pricing": {"base_cost_per_km": 1, "duration_cost_per_hour": 1, "urgent_pickup_multiplier": 1, "loader_price_per_hour": 1}, "vehicles": [{"id": 1, "name": "A"}], "calculator_limits": {"min_duration_hours": 8, "max_duration_hours": 4}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestOpen_ShippedCatalog(t *testing.T) {
	p, err := Open(filepath.Join("..", "..", "config", "calculator_config.json"), nil)
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.Len(t, snap.Vehicles, 5)
	assert.Equal(t, 1.3, snap.Pricing.UrgentPickupMultiplier)
	assert.NotEmpty(t, snap.AdditionalServices)
}

func TestReload_KeepsPreviousSnapshotOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalog), 0o600))

	p, err := Open(path, nil)
	require.NoError(t, err)
	before := p.Snapshot()

	require.NoError(t, os.WriteFile(path, []byte(`{"pricing": {}}`), 0o600))
	err = p.Reload()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Same(t, before, p.Snapshot())

	updated := strings.Replace(minimalCatalog, `"name": "Van"`, `"name": "Big Van"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	require.NoError(t, p.Reload())
	assert.Equal(t, "Big Van", p.Snapshot().Vehicles[0].Name)
}

func TestReload_StaticProvider(t *testing.T) {
	snap, err := Decode(strings.NewReader(minimalCatalog))
	require.NoError(t, err)
	assert.Error(t, NewStatic(snap).Reload())
}
