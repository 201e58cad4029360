package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/burst-fire/internal/mqtt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "burst-fire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	assert.Equal(t, 17, cfg.GPIO.ZeroCrossPin)
	assert.Equal(t, []int{5, 6, 13, 19, 26, 21}, cfg.GPIO.HeaterPins)
	assert.Equal(t, 27, cfg.GPIO.LEDPin)
	assert.Equal(t, "falling", cfg.GPIO.Edge)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Link.Port)
	assert.Equal(t, 115200, cfg.Link.BaudRate)
	assert.Equal(t, 10*time.Millisecond, cfg.Failsafe.PollInterval)
	assert.Equal(t, time.Second, cfg.Heartbeat.LED)
	assert.Equal(t, "/dev/watchdog", cfg.Watchdog.Device)
	assert.Equal(t, 2*time.Second, cfg.Watchdog.Timeout)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, mqtt.DefaultTopicPrefix, cfg.MQTT.TopicPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultDoesNotShareHeaterPins(t *testing.T) {
	a := Default()
	a.GPIO.HeaterPins[0] = 99
	assert.Equal(t, 5, Default().GPIO.HeaterPins[0])
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
gpio:
  chip: gpiochip4
  zero_cross_pin: 4
  heater_pins: [20, 21, 22, 23, 24, 25]
  led_pin: -1
  edge: rising
  pull_up: true
link:
  port: /dev/ttyUSB0
  baud_rate: 57600
failsafe:
  poll_interval: 5ms
heartbeat:
  led: 500ms
  status: 1m
watchdog:
  device: ""
mqtt:
  broker: tcp://192.168.1.200:1883
  topic_prefix: lab/heaters
http:
  addr: ":8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "gpiochip4", cfg.GPIO.Chip)
	assert.Equal(t, 4, cfg.GPIO.ZeroCrossPin)
	assert.Equal(t, []int{20, 21, 22, 23, 24, 25}, cfg.GPIO.HeaterPins)
	assert.Equal(t, -1, cfg.GPIO.LEDPin)
	assert.Equal(t, "rising", cfg.GPIO.Edge)
	assert.True(t, cfg.GPIO.PullUp)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Link.Port)
	assert.Equal(t, 57600, cfg.Link.BaudRate)
	assert.Equal(t, 5*time.Millisecond, cfg.Failsafe.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Heartbeat.LED)
	assert.Equal(t, time.Minute, cfg.Heartbeat.Status)
	assert.Empty(t, cfg.Watchdog.Device)
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)
	assert.Equal(t, "burst-fire", cfg.MQTT.ClientID)
	assert.Equal(t, "lab/heaters", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
link:
  port: /dev/ttyS1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Link.Port)
	assert.Equal(t, 115200, cfg.Link.BaudRate)
	assert.Equal(t, []int{5, 6, 13, 19, 26, 21}, cfg.GPIO.HeaterPins)
	assert.Equal(t, "/dev/watchdog", cfg.Watchdog.Device)
}

func TestLoad_ExplicitZerosFallBackToDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: ""
failsafe:
  poll_interval: 0s
gpio:
  edge: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Millisecond, cfg.Failsafe.PollInterval)
	assert.Equal(t, "falling", cfg.GPIO.Edge)
}

func TestLoad_LineZeroIsUsable(t *testing.T) {
	path := writeConfig(t, `
gpio:
  zero_cross_pin: 0
  led_pin: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.GPIO.ZeroCrossPin)
	assert.Equal(t, 1, cfg.GPIO.LEDPin)

	path = writeConfig(t, `
gpio:
  led_pin: 0
`)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.GPIO.LEDPin)
	assert.Equal(t, 17, cfg.GPIO.ZeroCrossPin, "absent keys keep defaults")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "gpio: [not, a, map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
gpio:
  heater_pins: [1, 2, 3]
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"too few heaters", func(c *Config) { c.GPIO.HeaterPins = c.GPIO.HeaterPins[:5] }},
		{"duplicate heater pin", func(c *Config) { c.GPIO.HeaterPins[1] = c.GPIO.HeaterPins[0] }},
		{"heater on zero-cross pin", func(c *Config) { c.GPIO.HeaterPins[2] = c.GPIO.ZeroCrossPin }},
		{"led on heater pin", func(c *Config) { c.GPIO.LEDPin = c.GPIO.HeaterPins[3] }},
		{"negative zero-cross pin", func(c *Config) { c.GPIO.ZeroCrossPin = -1 }},
		{"negative heater pin", func(c *Config) { c.GPIO.HeaterPins[4] = -2 }},
		{"unknown edge", func(c *Config) { c.GPIO.Edge = "up" }},
		{"poll too slow", func(c *Config) { c.Failsafe.PollInterval = 5 * time.Second }},
		{"negative poll", func(c *Config) { c.Failsafe.PollInterval = -time.Millisecond }},
		{"watchdog too short", func(c *Config) { c.Watchdog.Timeout = 500 * time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidate_DisabledWatchdogIgnoresTimeout(t *testing.T) {
	cfg := Default()
	cfg.Watchdog.Device = ""
	cfg.Watchdog.Timeout = time.Millisecond
	assert.NoError(t, cfg.Validate())
}

func TestMarshalLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = "tcp://broker:1883"
	cfg.GPIO.LEDPin = -1

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll_interval: 10ms")

	loaded, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
