package firmware

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/robotalks/flipbot/pkg/hal"
	"github.com/robotalks/flipbot/pkg/lis2hh12"
	"github.com/robotalks/flipbot/pkg/motor"
	"github.com/robotalks/flipbot/pkg/orient"
	"github.com/robotalks/flipbot/pkg/pulse"
	"github.com/robotalks/flipbot/pkg/twi"
)

// Command sources.
const (
	SourceFixed = "fixed"
	SourcePulse = "pulse"
)

// ErrUnknownSource indicates an unsupported command source.
var ErrUnknownSource = errors.New("unknown command source")

// Pins assigns board lines.
type Pins struct {
	Motor1    motor.PinPair `yaml:"motor1"`
	Motor2    motor.PinPair `yaml:"motor2"`
	Brushless hal.Pin       `yaml:"brushless"`
	// Input1 and Input2 are the differential pulse inputs commanding the
	// brushed motors, Throttle the servo input of the brushless motor.
	Input1   motor.PinPair `yaml:"input1"`
	Input2   motor.PinPair `yaml:"input2"`
	Throttle hal.Pin       `yaml:"throttle"`
	// Button is pulled up and reads low when pressed.
	Button hal.Pin `yaml:"button"`
}

// Config configures the firmware.
type Config struct {
	CPUHz uint32 `yaml:"cpu_hz"`
	// BusHz is the two-wire bus clock.
	BusHz uint32 `yaml:"bus_hz"`
	// Ctrl1 is written to the accelerometer CTRL1 register on start.
	Ctrl1 uint8 `yaml:"ctrl1"`

	// Source is SourceFixed or SourcePulse.
	Source   string         `yaml:"source"`
	Fixed    FixedProfile   `yaml:"fixed"`
	Throttle pulse.Throttle `yaml:"throttle"`

	// Down is the reference down vector, in sensor axes.
	Down     []int16 `yaml:"down,flow"`
	Deadzone int     `yaml:"deadzone"`
	Timeout  int     `yaml:"timeout"`

	// PollTicks and VoltmeterTicks are the tick thresholds of the sensor
	// poll and the battery reading.
	PollTicks      int32 `yaml:"poll_ticks"`
	VoltmeterTicks int32 `yaml:"voltmeter_ticks"`

	// SharedTimer runs both brushed motors on one 8-bit timer.
	SharedTimer bool `yaml:"shared_timer"`
	// Brushless enables the brushless output.
	Brushless bool `yaml:"brushless"`

	Pins Pins `yaml:"pins"`
}

var defaultConfig = Config{
	CPUHz:          8000000,
	BusHz:          twi.DefaultFrequency,
	Ctrl1:          lis2hh12.DefaultCtrl1,
	Source:         SourceFixed,
	Fixed:          DefaultProfile,
	Throttle:       pulse.DefaultThrottle,
	Down:           orient.DefaultDown[:],
	Deadzone:       orient.DefaultDeadzone,
	Timeout:        orient.DefaultTimeout,
	PollTicks:      5,
	VoltmeterTicks: 4840,
	Pins: Pins{
		Motor1:    motor.PinPair{A: 1, B: 2},
		Motor2:    motor.PinPair{A: 3, B: 4},
		Brushless: 5,
		Input1:    motor.PinPair{A: 10, B: 11},
		Input2:    motor.PinPair{A: 12, B: 13},
		Throttle:  14,
		Button:    20,
	},
}

func init() {
	if val := os.Getenv("FLIPBOT_SOURCE"); val != "" {
		defaultConfig.Source = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Source, "source", defaultConfig.Source, "Motor command source: fixed or pulse")
	flag.BoolVar(&defaultConfig.SharedTimer, "shared-timer", defaultConfig.SharedTimer, "Run brushed motors on one shared timer")
	flag.BoolVar(&defaultConfig.Brushless, "brushless", defaultConfig.Brushless, "Enable brushless motor output")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Down = append([]int16(nil), defaultConfig.Down...)
	return &conf
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(fn string) (*Config, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	conf := NewConfig()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config error: %v", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceFixed, SourcePulse:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Source)
	}
	if c.CPUHz == 0 {
		return fmt.Errorf("cpu_hz must be positive")
	}
	if len(c.Down) != 3 {
		return fmt.Errorf("down must have 3 components, got %d", len(c.Down))
	}
	if c.PollTicks < 0 || c.VoltmeterTicks < 0 {
		return fmt.Errorf("tick thresholds must not be negative")
	}
	return nil
}

// DownVector returns Down as an orient.Vector.
func (c *Config) DownVector() (v orient.Vector) {
	copy(v[:], c.Down)
	return
}
