package alerting

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	iso8601 "github.com/senseyeio/duration"
	"gopkg.in/yaml.v3"
)

// MaxDispatchChunkSize is the largest push batch the multicast sender
// accepts.
const MaxDispatchChunkSize = 500

// Config holds every threshold used by the engine. It is built once and
// passed into NewEngine.
type Config struct {
	MinDisplacementMeters float64

	CandidateRadiusMeters        float64
	MaxDestinationDistanceMeters float64

	ConeAngleDegrees   float64
	ConeDistanceMeters float64

	LowSpeedConeAngleDegrees         float64
	LowSpeedThresholdMetersPerSecond float64

	MovementAlignmentDegrees float64

	RouteCorridorHalfWidthMeters float64

	DispatchChunkSize int
	Cooldown          time.Duration

	AlertTitle   string
	AlertMessage string
}

var defaultConfig = Config{
	MinDisplacementMeters: 5,

	CandidateRadiusMeters:        2000,
	MaxDestinationDistanceMeters: 500,

	ConeAngleDegrees:   60,
	ConeDistanceMeters: 500,

	LowSpeedConeAngleDegrees:         90,
	LowSpeedThresholdMetersPerSecond: 0.5,

	MovementAlignmentDegrees: 45,

	RouteCorridorHalfWidthMeters: 6,

	DispatchChunkSize: MaxDispatchChunkSize,
	Cooldown:          0,

	AlertTitle:   "Emergency Vehicle Alert",
	AlertMessage: "An ambulance is coming. Please move aside",
}

func DefaultConfig() Config {
	return defaultConfig
}

// GetConfig returns the default configuration with any MOVEASIDE_*
// environment overrides applied.
func GetConfig() Config {
	config := defaultConfig

	floatOverrides := map[string]*float64{
		"MOVEASIDE_MIN_DISPLACEMENT_METERS":          &config.MinDisplacementMeters,
		"MOVEASIDE_CANDIDATE_RADIUS_METERS":          &config.CandidateRadiusMeters,
		"MOVEASIDE_MAX_DESTINATION_DISTANCE_METERS":  &config.MaxDestinationDistanceMeters,
		"MOVEASIDE_CONE_ANGLE_DEGREES":               &config.ConeAngleDegrees,
		"MOVEASIDE_CONE_DISTANCE_METERS":             &config.ConeDistanceMeters,
		"MOVEASIDE_LOW_SPEED_CONE_ANGLE_DEGREES":     &config.LowSpeedConeAngleDegrees,
		"MOVEASIDE_LOW_SPEED_THRESHOLD_MPS":          &config.LowSpeedThresholdMetersPerSecond,
		"MOVEASIDE_MOVEMENT_ALIGNMENT_DEGREES":       &config.MovementAlignmentDegrees,
		"MOVEASIDE_ROUTE_CORRIDOR_HALF_WIDTH_METERS": &config.RouteCorridorHalfWidthMeters,
	}
	for name, field := range floatOverrides {
		if val := os.Getenv(name); val != "" {
			if parsed, err := strconv.ParseFloat(val, 64); err == nil {
				*field = parsed
			}
		}
	}

	if val := os.Getenv("MOVEASIDE_DISPATCH_CHUNK_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.DispatchChunkSize = parsed
		}
	}

	if val := os.Getenv("MOVEASIDE_ALERT_COOLDOWN"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.Cooldown = parsed
		}
	}

	if val := os.Getenv("MOVEASIDE_ALERT_TITLE"); val != "" {
		config.AlertTitle = val
	}
	if val := os.Getenv("MOVEASIDE_ALERT_MESSAGE"); val != "" {
		config.AlertMessage = val
	}

	return config
}

type fileConfig struct {
	MinDisplacementMeters *float64 `yaml:"MinDisplacementMeters"`

	CandidateRadiusMeters        *float64 `yaml:"CandidateRadiusMeters"`
	MaxDestinationDistanceMeters *float64 `yaml:"MaxDestinationDistanceMeters"`

	ConeAngleDegrees   *float64 `yaml:"ConeAngleDegrees"`
	ConeDistanceMeters *float64 `yaml:"ConeDistanceMeters"`

	LowSpeedConeAngleDegrees         *float64 `yaml:"LowSpeedConeAngleDegrees"`
	LowSpeedThresholdMetersPerSecond *float64 `yaml:"LowSpeedThresholdMetersPerSecond"`

	MovementAlignmentDegrees *float64 `yaml:"MovementAlignmentDegrees"`

	RouteCorridorHalfWidthMeters *float64 `yaml:"RouteCorridorHalfWidthMeters"`

	DispatchChunkSize *int `yaml:"DispatchChunkSize"`

	// ISO-8601 duration, eg PT2M
	Cooldown *string `yaml:"Cooldown"`

	AlertTitle   *string `yaml:"AlertTitle"`
	AlertMessage *string `yaml:"AlertMessage"`
}

// LoadConfigFile overlays the values set in a YAML file on top of config.
func LoadConfigFile(path string, config Config) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	return ParseConfig(contents, config)
}

func ParseConfig(contents []byte, config Config) (Config, error) {
	var overrides fileConfig

	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	if err := decoder.Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	setFloat := func(target *float64, value *float64) {
		if value != nil {
			*target = *value
		}
	}
	setFloat(&config.MinDisplacementMeters, overrides.MinDisplacementMeters)
	setFloat(&config.CandidateRadiusMeters, overrides.CandidateRadiusMeters)
	setFloat(&config.MaxDestinationDistanceMeters, overrides.MaxDestinationDistanceMeters)
	setFloat(&config.ConeAngleDegrees, overrides.ConeAngleDegrees)
	setFloat(&config.ConeDistanceMeters, overrides.ConeDistanceMeters)
	setFloat(&config.LowSpeedConeAngleDegrees, overrides.LowSpeedConeAngleDegrees)
	setFloat(&config.LowSpeedThresholdMetersPerSecond, overrides.LowSpeedThresholdMetersPerSecond)
	setFloat(&config.MovementAlignmentDegrees, overrides.MovementAlignmentDegrees)
	setFloat(&config.RouteCorridorHalfWidthMeters, overrides.RouteCorridorHalfWidthMeters)

	if overrides.DispatchChunkSize != nil {
		config.DispatchChunkSize = *overrides.DispatchChunkSize
	}

	if overrides.Cooldown != nil {
		cooldown, err := iso8601.ParseISO8601(*overrides.Cooldown)
		if err != nil {
			return config, fmt.Errorf("failed to parse cooldown %q: %w", *overrides.Cooldown, err)
		}

		reference := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		config.Cooldown = cooldown.Shift(reference).Sub(reference)
	}

	if overrides.AlertTitle != nil {
		config.AlertTitle = *overrides.AlertTitle
	}
	if overrides.AlertMessage != nil {
		config.AlertMessage = *overrides.AlertMessage
	}

	return config, nil
}

// Validate only checks values that would make every cycle fail. Zone
// parameters are checked again by the corridor builder.
func (c Config) Validate() error {
	if c.CandidateRadiusMeters <= 0 {
		return fmt.Errorf("candidate radius must be positive, got %v", c.CandidateRadiusMeters)
	}
	if c.MaxDestinationDistanceMeters <= 0 {
		return fmt.Errorf("max destination distance must be positive, got %v", c.MaxDestinationDistanceMeters)
	}
	if c.MinDisplacementMeters < 0 {
		return fmt.Errorf("min displacement cannot be negative, got %v", c.MinDisplacementMeters)
	}
	if c.DispatchChunkSize <= 0 {
		return fmt.Errorf("dispatch chunk size must be positive, got %d", c.DispatchChunkSize)
	}
	if c.DispatchChunkSize > MaxDispatchChunkSize {
		return fmt.Errorf("dispatch chunk size %d exceeds the push multicast limit of %d", c.DispatchChunkSize, MaxDispatchChunkSize)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown cannot be negative, got %s", c.Cooldown)
	}

	return nil
}
