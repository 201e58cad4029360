// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/burst-fire/internal/gpio"
	"github.com/sweeney/burst-fire/internal/link"
	"github.com/sweeney/burst-fire/internal/logic"
	"github.com/sweeney/burst-fire/internal/mqtt"
)

// ErrInvalid is returned by Validate for an unusable configuration.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the daemon configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Link      LinkConfig      `yaml:"link"`
	Failsafe  FailsafeConfig  `yaml:"failsafe"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GPIOConfig contains the GPIO chip and line assignment (BCM numbering).
type GPIOConfig struct {
	Chip         string `yaml:"chip"`
	ZeroCrossPin int    `yaml:"zero_cross_pin"`
	HeaterPins   []int  `yaml:"heater_pins"`
	LEDPin       int    `yaml:"led_pin"` // -1 disables the LED
	Edge         string `yaml:"edge"`    // falling, rising or both
	PullUp       bool   `yaml:"pull_up"`
}

// LinkConfig contains the command link serial port configuration.
type LinkConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// FailsafeConfig contains failsafe supervisor parameters.
type FailsafeConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"` // upper bound on failsafe latency
}

// HeartbeatConfig contains the LED and telemetry heartbeat periods.
type HeartbeatConfig struct {
	LED    time.Duration `yaml:"led"`
	Status time.Duration `yaml:"status"` // MQTT status heartbeat, 0 disables
}

// WatchdogConfig contains hardware watchdog parameters.
type WatchdogConfig struct {
	Device  string        `yaml:"device"` // empty disables the watchdog
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig contains telemetry broker parameters.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables MQTT
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// HTTPConfig contains the status server parameters.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		GPIO: GPIOConfig{
			Chip:         "gpiochip0",
			ZeroCrossPin: gpio.DefaultZeroCrossPin,
			HeaterPins:   append([]int(nil), gpio.DefaultHeaterPins...),
			LEDPin:       gpio.DefaultLEDPin,
			Edge:         gpio.EdgeFalling,
		},
		Link: LinkConfig{
			Port:     "/dev/ttyAMA0",
			BaudRate: link.DefaultBaudRate,
		},
		Failsafe: FailsafeConfig{
			PollInterval: 10 * time.Millisecond,
		},
		Heartbeat: HeartbeatConfig{
			LED:    logic.HeartbeatPeriod,
			Status: 15 * time.Minute,
		},
		Watchdog: WatchdogConfig{
			Device:  "/dev/watchdog",
			Timeout: logic.WatchdogTimeout,
		},
		MQTT: MQTTConfig{
			ClientID:    "burst-fire",
			TopicPrefix: mqtt.DefaultTopicPrefix,
		},
		HTTP: HTTPConfig{Addr: ":80"},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if n := len(c.GPIO.HeaterPins); n != logic.NumChannels {
		return fmt.Errorf("%w: gpio.heater_pins has %d entries, want %d", ErrInvalid, n, logic.NumChannels)
	}
	if c.GPIO.ZeroCrossPin < 0 {
		return fmt.Errorf("%w: gpio.zero_cross_pin %d", ErrInvalid, c.GPIO.ZeroCrossPin)
	}
	seen := map[int]bool{c.GPIO.ZeroCrossPin: true}
	if c.GPIO.LEDPin >= 0 {
		if seen[c.GPIO.LEDPin] {
			return fmt.Errorf("%w: gpio.led_pin %d already in use", ErrInvalid, c.GPIO.LEDPin)
		}
		seen[c.GPIO.LEDPin] = true
	}
	for _, p := range c.GPIO.HeaterPins {
		if p < 0 {
			return fmt.Errorf("%w: gpio.heater_pins contains %d", ErrInvalid, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: gpio pin %d assigned twice", ErrInvalid, p)
		}
		seen[p] = true
	}
	switch c.GPIO.Edge {
	case gpio.EdgeFalling, gpio.EdgeRising, gpio.EdgeBoth:
	default:
		return fmt.Errorf("%w: gpio.edge %q", ErrInvalid, c.GPIO.Edge)
	}
	if c.Failsafe.PollInterval <= 0 || c.Failsafe.PollInterval >= logic.FailsafeTimeout {
		return fmt.Errorf("%w: failsafe.poll_interval %v must be between 0 and %v", ErrInvalid, c.Failsafe.PollInterval, logic.FailsafeTimeout)
	}
	if c.Watchdog.Device != "" && c.Watchdog.Timeout < time.Second {
		return fmt.Errorf("%w: watchdog.timeout %v is below 1s", ErrInvalid, c.Watchdog.Timeout)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if len(c.GPIO.HeaterPins) == 0 {
		c.GPIO.HeaterPins = def.GPIO.HeaterPins
	}
	if c.GPIO.Edge == "" {
		c.GPIO.Edge = def.GPIO.Edge
	}

	if c.Link.Port == "" {
		c.Link.Port = def.Link.Port
	}
	if c.Link.BaudRate == 0 {
		c.Link.BaudRate = def.Link.BaudRate
	}

	if c.Failsafe.PollInterval == 0 {
		c.Failsafe.PollInterval = def.Failsafe.PollInterval
	}

	if c.Heartbeat.LED == 0 {
		c.Heartbeat.LED = def.Heartbeat.LED
	}

	if c.Watchdog.Timeout == 0 {
		c.Watchdog.Timeout = def.Watchdog.Timeout
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
}
