package alerting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 5.0, config.MinDisplacementMeters)
	assert.Equal(t, 2000.0, config.CandidateRadiusMeters)
	assert.Equal(t, 500.0, config.MaxDestinationDistanceMeters)
	assert.Equal(t, 60.0, config.ConeAngleDegrees)
	assert.Equal(t, 500, config.DispatchChunkSize)
	assert.Equal(t, time.Duration(0), config.Cooldown)
	assert.NoError(t, config.Validate())
}

func TestGetConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("MOVEASIDE_CANDIDATE_RADIUS_METERS", "1500")
	t.Setenv("MOVEASIDE_CONE_ANGLE_DEGREES", "45.5")
	t.Setenv("MOVEASIDE_MIN_DISPLACEMENT_METERS", "not-a-number")
	t.Setenv("MOVEASIDE_DISPATCH_CHUNK_SIZE", "100")
	t.Setenv("MOVEASIDE_ALERT_COOLDOWN", "90s")
	t.Setenv("MOVEASIDE_ALERT_TITLE", "Ambulance nearby")

	config := GetConfig()

	assert.Equal(t, 1500.0, config.CandidateRadiusMeters)
	assert.Equal(t, 45.5, config.ConeAngleDegrees)
	assert.Equal(t, 5.0, config.MinDisplacementMeters)
	assert.Equal(t, 100, config.DispatchChunkSize)
	assert.Equal(t, 90*time.Second, config.Cooldown)
	assert.Equal(t, "Ambulance nearby", config.AlertTitle)
	assert.Equal(t, DefaultConfig().AlertMessage, config.AlertMessage)
}

func TestParseConfig(t *testing.T) {
	contents := []byte(`
ConeAngleDegrees: 40
ConeDistanceMeters: 750
MovementAlignmentDegrees: 0
DispatchChunkSize: 250
Cooldown: PT2M
AlertMessage: Please give way
`)

	config, err := ParseConfig(contents, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 40.0, config.ConeAngleDegrees)
	assert.Equal(t, 750.0, config.ConeDistanceMeters)
	assert.Equal(t, 0.0, config.MovementAlignmentDegrees)
	assert.Equal(t, 250, config.DispatchChunkSize)
	assert.Equal(t, 2*time.Minute, config.Cooldown)
	assert.Equal(t, "Please give way", config.AlertMessage)

	// Untouched values keep the base configuration
	assert.Equal(t, 2000.0, config.CandidateRadiusMeters)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("UnknownSetting: 4\n"), DefaultConfig())
	assert.Error(t, err)

	_, err = ParseConfig([]byte("Cooldown: two minutes\n"), DefaultConfig())
	assert.Error(t, err)

	config, err := ParseConfig([]byte(""), DefaultConfig())
	assert.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moveaside.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CandidateRadiusMeters: 3000\n"), 0o644))

	config, err := LoadConfigFile(path, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 3000.0, config.CandidateRadiusMeters)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig())
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(config *Config)
	}{
		{"ZeroRadius", func(config *Config) { config.CandidateRadiusMeters = 0 }},
		{"NegativeMaxDistance", func(config *Config) { config.MaxDestinationDistanceMeters = -1 }},
		{"NegativeDisplacement", func(config *Config) { config.MinDisplacementMeters = -5 }},
		{"ZeroChunkSize", func(config *Config) { config.DispatchChunkSize = 0 }},
		{"ChunkSizeAboveMulticastLimit", func(config *Config) { config.DispatchChunkSize = MaxDispatchChunkSize + 1 }},
		{"NegativeCooldown", func(config *Config) { config.Cooldown = -time.Second }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := DefaultConfig()
			test.modify(&config)
			assert.Error(t, config.Validate())
		})
	}

	config := DefaultConfig()
	config.DispatchChunkSize = MaxDispatchChunkSize
	assert.NoError(t, config.Validate())
}
