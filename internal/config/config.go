package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDOverlay string
	MQTTClientIDIMU     string
	MQTTClientIDGPS     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicQuaternion string // fused quaternions (generic-sensor source)
	TopicMotion     string // raw gyro + gravity accel events
	TopicHeading    string // magnetic heading measurements
	TopicGPS        string // position fixes
	TopicSample     string // fused orientation samples (published)

	// Overlay settings
	HFOVDeg                 float64
	MaxDistanceKm           float64
	Units                   string // "km" or "mi"
	HeadingOffsetDeg        float64
	Smoothing               float64
	ShowOffscreenIndicators bool

	// Orientation engine
	OrientationTickInterval int  // milliseconds
	FallbackGraceMS         int  // milliseconds
	MockOrientation         bool // synthetic sweep instead of MQTT sensors
	UseGenericSensor        bool // probe the quaternion topic first

	// Frame loop / web
	FrameInterval    int // milliseconds
	WebServerPort    int
	WebRoot          string
	DevicePixelRatio float64

	// Data
	EntitiesFile string
	FallbackLat  float64
	FallbackLon  float64

	// GPS producer
	GPSSerialPort string
	GPSBaudRate   int

	// IMU producer
	IMUSPIDevice      string
	IMUCSPin          string
	IMUAccelRange     byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUGyroRange      byte // 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUSampleInterval int  // milliseconds

	// Display consumer
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported singleton, initialized once and read-locked for
// concurrent readers. External code must use InitGlobal() to set and Get()
// to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config preloaded with every value that has a sensible
// default; the file only needs to override what differs.
func defaults() *Config {
	return &Config{
		MQTTClientIDOverlay: "horizon-overlay",
		MQTTClientIDIMU:     "horizon-imu-producer",
		MQTTClientIDGPS:     "horizon-gps-producer",
		MQTTClientIDConsole: "horizon-console",
		MQTTClientIDDisplay: "horizon-display",

		TopicQuaternion: "horizon/quat",
		TopicMotion:     "horizon/motion",
		TopicHeading:    "horizon/heading",
		TopicGPS:        "horizon/gps",
		TopicSample:     "horizon/sample",

		HFOVDeg:                 60,
		MaxDistanceKm:           300,
		Units:                   "km",
		Smoothing:               0.12,
		ShowOffscreenIndicators: true,

		OrientationTickInterval: 33,
		FallbackGraceMS:         2000,
		UseGenericSensor:        true,

		FrameInterval:    33,
		WebServerPort:    8080,
		WebRoot:          "web",
		DevicePixelRatio: 1,

		FallbackLat: 39.9960,
		FallbackLon: -74.0621,

		GPSBaudRate:       9600,
		IMUSampleInterval: 20,

		DisplayUpdateInterval: 100,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_OVERLAY":
		c.MQTTClientIDOverlay = value
	case "MQTT_CLIENT_ID_IMU":
		c.MQTTClientIDIMU = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_QUATERNION":
		c.TopicQuaternion = value
	case "TOPIC_MOTION":
		c.TopicMotion = value
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_SAMPLE":
		c.TopicSample = value

	// Overlay settings
	case "HFOV_DEG":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		if v <= 0 || v > 180 {
			return fmt.Errorf("HFOV_DEG must be in (0,180], got %v", v)
		}
		c.HFOVDeg = v
	case "MAX_DISTANCE_KM":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		if v <= 0 {
			return fmt.Errorf("MAX_DISTANCE_KM must be positive, got %v", v)
		}
		c.MaxDistanceKm = v
	case "UNITS":
		if value != "km" && value != "mi" {
			return fmt.Errorf("UNITS must be \"km\" or \"mi\", got %q", value)
		}
		c.Units = value
	case "HEADING_OFFSET_DEG":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.HeadingOffsetDeg = v
	case "SMOOTHING":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		if v < 0 || v > 0.3 {
			return fmt.Errorf("SMOOTHING must be in [0,0.3], got %v", v)
		}
		c.Smoothing = v
	case "SHOW_OFFSCREEN_INDICATORS":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.ShowOffscreenIndicators = v

	// Orientation engine
	case "ORIENTATION_TICK_INTERVAL":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.OrientationTickInterval = v
	case "FALLBACK_GRACE_MS":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.FallbackGraceMS = v
	case "MOCK_ORIENTATION":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.MockOrientation = v
	case "USE_GENERIC_SENSOR":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.UseGenericSensor = v

	// Frame loop / web
	case "FRAME_INTERVAL":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.FrameInterval = v
	case "WEB_SERVER_PORT":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.WebServerPort = v
	case "WEB_ROOT":
		c.WebRoot = value
	case "DEVICE_PIXEL_RATIO":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.DevicePixelRatio = v

	// Data
	case "ENTITIES_FILE":
		c.EntitiesFile = value
	case "FALLBACK_LAT":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.FallbackLat = v
	case "FALLBACK_LON":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.FallbackLon = v

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.GPSBaudRate = v

	// IMU
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		if v < 0 || v > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", v)
		}
		c.IMUAccelRange = byte(v)
	case "IMU_GYRO_RANGE":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		if v < 0 || v > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", v)
		}
		c.IMUGyroRange = byte(v)
	case "IMU_SAMPLE_INTERVAL":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.IMUSampleInterval = v

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.DisplayUpdateInterval = v

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks the fields every binary depends on. Producer-specific
// fields (serial port, SPI device) are checked by the producers themselves.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be positive")
	}
	if c.OrientationTickInterval <= 0 {
		return fmt.Errorf("ORIENTATION_TICK_INTERVAL must be positive")
	}
	if c.WebServerPort <= 0 {
		return fmt.Errorf("WEB_SERVER_PORT must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses sync.Once
// so repeated calls are harmless.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}
