package input

import (
	"flag"

	"github.com/BurntSushi/toml"
)

// Config defines the calibration for mapping raw axis readings into
// the CRSF channel range.
type Config struct {
	// Raw input spans. Readings are expected in [0, max).
	SteeringSpan int `toml:"steering_span"`
	PedalSpan    int `toml:"pedal_span"`

	// Output bounds in CRSF channel units. Brake runs downward from
	// center so that pressing it drops channel 1 below 992.
	SteerMin    int `toml:"steer_min"`
	SteerMax    int `toml:"steer_max"`
	ThrottleMin int `toml:"throttle_min"`
	ThrottleMax int `toml:"throttle_max"`
	BrakeMin    int `toml:"brake_min"`
	BrakeMax    int `toml:"brake_max"`

	// CenterOffset shifts steering output; see Mapper.Center.
	CenterOffset int `toml:"center_offset"`

	// FilterWindow is the moving average length applied per axis.
	FilterWindow int `toml:"filter_window"`
}

var defaultConfig = Config{
	SteeringSpan: 2560,
	PedalSpan:    256,
	SteerMin:     172,
	SteerMax:     1811,
	ThrottleMin:  992,
	ThrottleMax:  1811,
	BrakeMin:     992,
	BrakeMax:     172,
	FilterWindow: 5,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.CenterOffset, "steer-center", defaultConfig.CenterOffset, "Steering center offset in channel units.")
	flag.IntVar(&defaultConfig.FilterWindow, "filter-window", defaultConfig.FilterWindow, "Moving average window per axis.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadConfig reads a TOML calibration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	conf := NewConfig()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// NewMapper creates a mapper using the config.
func (c *Config) NewMapper() *Mapper {
	return newMapper(*c)
}
