// Package config loads the tunable constants that parameterize a match:
// tick timing, juice bounds, the flow/production model, the gold economy,
// bridge costs, and the sharp-angle geometry thresholds.
package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings is the strict, fully-typed configuration consumed by the engine:
// tick pacing, phase durations, juice/economy tuning, and bridge/geometry
// knobs, all overridable from a single YAML file.
type Settings struct {
	Mode string `yaml:"mode"`

	TickInterval    time.Duration `yaml:"-"`
	TickIntervalMS  int           `yaml:"tickIntervalMs"`
	GameDuration    time.Duration `yaml:"-"`
	GameDurationSec float64       `yaml:"gameDurationSeconds"`
	PeaceDuration   time.Duration `yaml:"-"`
	PeaceDurationSec float64      `yaml:"peaceDurationSeconds"`

	JuiceMin float64 `yaml:"juiceMin"`
	JuiceMax float64 `yaml:"juiceMax"`

	ProductionRatePerNode   float64 `yaml:"productionRatePerNode"`
	BaseTransferFraction    float64 `yaml:"baseTransferFraction"`
	IntakeBonusDivisor      float64 `yaml:"intakeBonusDivisor"`

	NeutralCaptureGold  float64 `yaml:"neutralCaptureGold"`
	StartingGold        float64 `yaml:"startingGold"`
	PassiveIncomeEnabled bool   `yaml:"passiveIncomeEnabled"`
	PassiveGoldPerTick  float64 `yaml:"passiveGoldPerTick"`

	BridgeCostPerUnitDistance float64 `yaml:"bridgeCostPerUnitDistance"`
	BridgeBuildTicksPerUnit   float64 `yaml:"bridgeBuildTicksPerUnit"`

	MinJoinAngleDegrees         float64 `yaml:"minJoinAngleDegrees"`
	MaxSharpAngleDisplacement   float64 `yaml:"maxSharpAngleDisplacement"`
	CollisionClearance          float64 `yaml:"collisionClearance"`

	CapitalWinCount int `yaml:"capitalWinCount"`
}

// Default returns the built-in tuning, usable without a config file.
func Default() *Settings {
	s := &Settings{
		Mode:                      "sparse",
		TickIntervalMS:            100,
		GameDurationSec:           600,
		PeaceDurationSec:          15,
		JuiceMin:                  0.0,
		JuiceMax:                  120.0,
		ProductionRatePerNode:     0.15,
		BaseTransferFraction:      0.01,
		IntakeBonusDivisor:        100.0,
		NeutralCaptureGold:        2.0,
		StartingGold:              0.0,
		PassiveIncomeEnabled:      true,
		PassiveGoldPerTick:        0.09,
		BridgeCostPerUnitDistance: 1.0,
		BridgeBuildTicksPerUnit:   0.6,
		MinJoinAngleDegrees:       22.5,
		MaxSharpAngleDisplacement: 50.0,
		CollisionClearance:        5.0,
		CapitalWinCount:           5,
	}
	s.derive()
	return s
}

func (s *Settings) derive() {
	s.TickInterval = time.Duration(s.TickIntervalMS) * time.Millisecond
	s.GameDuration = time.Duration(s.GameDurationSec * float64(time.Second))
	s.PeaceDuration = time.Duration(s.PeaceDurationSec * float64(time.Second))
}

// outerConfig is a two-stage config shape: Viper discovers and decodes the
// file loosely (kind/def), then the "def" section is
// re-marshalled and strictly unmarshalled via yaml.v3 into Settings. This
// keeps Viper's forgiving file discovery (env overlay, multiple formats)
// decoupled from the engine's strict typed config.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Load reads a YAML settings file and overlays it onto Default().
func Load(path string) (*Settings, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, err
	}

	settings := Default()
	if err := yaml.Unmarshal(raw, settings); err != nil {
		return nil, err
	}
	settings.derive()

	return settings, nil
}
