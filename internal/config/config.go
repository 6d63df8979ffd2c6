// Package config loads settings from defaults, an optional doodleboard.json, DOODLEBOARD_*
// environment variables and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	fileName  = "doodleboard"
	envPrefix = "DOODLEBOARD"
)

// Config is a typed view of the loaded settings.
type Config struct {
	LogLevel string

	RelayListen     string
	RelayURL        string
	RelayAdvertise  bool
	RelaySendBuffer int

	ImagegenServerURL string
	ImagegenTimeout   time.Duration

	CanvasWidth            float64
	CanvasHeight           float64
	CanvasDevicePixelRatio float64

	BrushSize  float64
	BrushColor string

	ExportDir   string
	GalleryPath string
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("relay.listen", ":5001")
	viper.SetDefault("relay.url", "")
	viper.SetDefault("relay.advertise", true)
	viper.SetDefault("relay.sendBuffer", 256)

	viper.SetDefault("imagegen.serverUrl", "http://localhost:5000")
	viper.SetDefault("imagegen.timeout", "2m")

	viper.SetDefault("canvas.width", 800)
	viper.SetDefault("canvas.height", 480)
	viper.SetDefault("canvas.devicePixelRatio", 0)

	viper.SetDefault("brush.size", 6)
	viper.SetDefault("brush.color", "#000000")

	viper.SetDefault("export.dir", ".")
	viper.SetDefault("gallery.path", "doodleboard.db")
}

// Load sets defaults, enables environment overrides and reads doodleboard.json from
// configDir when present. A missing file is not an error.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(fileName)
	viper.SetConfigType("json")
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":  "logLevel",
	"listen":     "relay.listen",
	"relay-url":  "relay.url",
	"advertise":  "relay.advertise",
	"server-url": "imagegen.serverUrl",
	"export-dir": "export.dir",
	"gallery":    "gallery.path",
	"dpr":        "canvas.devicePixelRatio",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("listen", ":5001", "relay hub listen address")
	fs.String("relay-url", "", "relay hub to join (share link or ws:// URL)")
	fs.Bool("advertise", true, "advertise the hub over mDNS")
	fs.String("server-url", "http://localhost:5000", "image generation server")
	fs.String("export-dir", ".", "directory for saved drawings")
	fs.String("gallery", "doodleboard.db", "gallery database path, empty for in-memory")
	fs.Float64("dpr", 0, "device pixel ratio, 0 to use the display scale")
}

// BindFlags makes flags set on fs override the other sources.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Current returns the settings as loaded.
func Current() Config {
	return Config{
		LogLevel: viper.GetString("logLevel"),

		RelayListen:     viper.GetString("relay.listen"),
		RelayURL:        viper.GetString("relay.url"),
		RelayAdvertise:  viper.GetBool("relay.advertise"),
		RelaySendBuffer: viper.GetInt("relay.sendBuffer"),

		ImagegenServerURL: viper.GetString("imagegen.serverUrl"),
		ImagegenTimeout:   viper.GetDuration("imagegen.timeout"),

		CanvasWidth:            viper.GetFloat64("canvas.width"),
		CanvasHeight:           viper.GetFloat64("canvas.height"),
		CanvasDevicePixelRatio: viper.GetFloat64("canvas.devicePixelRatio"),

		BrushSize:  viper.GetFloat64("brush.size"),
		BrushColor: viper.GetString("brush.color"),

		ExportDir:   viper.GetString("export.dir"),
		GalleryPath: viper.GetString("gallery.path"),
	}
}
