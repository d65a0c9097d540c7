// Package env provides the common options of flipbot programs talking
// over MQTT.
package env

import (
	"flag"
	"fmt"

	cenv "github.com/caarlos0/env"
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/flipbot/pkg/telemetry"
)

// RobotType is the type segment of flipbot topics.
const RobotType = "flipbot"

// MachineID retrieves the unique ID identifying the machine. An empty
// string is returned if the platform doesn't expose one.
func MachineID() string {
	id, err := machineid.ProtectedID(RobotType)
	if err != nil {
		return ""
	}
	return id[:12]
}

// Config identifies the robot and the broker.
type Config struct {
	Type string
	ID   string `env:"FLIPBOT_ID"`

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `env:"FLIPBOT_MQTT_URL"`
}

var defaultConfig = Config{
	Type:          RobotType,
	MQTTBrokerURL: "mqtt://localhost:1883/robo/",
}

func init() {
	defaultConfig.ID = MachineID()
	if err := defaultConfig.LoadEnv(); err != nil {
		glog.Warningf("environment ignored: %v", err)
	}
}

// LoadEnv overrides fields from environment variables which are set.
func (c *Config) LoadEnv() error {
	return cenv.Parse(c)
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Robot ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the robot is identified.
func (c *Config) Validate() error {
	if c.Type == "" || c.ID == "" {
		return fmt.Errorf("robot type and id must be specified")
	}
	return nil
}

// Topics returns the topics of the configured robot.
func (c *Config) Topics() telemetry.Topics {
	return telemetry.Topics{Type: c.Type, ID: c.ID}
}

// NewQueue connects to the configured broker.
func (c *Config) NewQueue() (*telemetry.Queue, error) {
	q, err := telemetry.NewQueueFromURL(c.MQTTBrokerURL)
	if err != nil {
		return nil, fmt.Errorf("create MQTT client error: %v", err)
	}
	if err := q.Connect(); err != nil {
		return nil, err
	}
	return q, nil
}
