package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-tangra/go-tangra-diskhealth/internal/logging"
)

// Collector holds the collector daemon configuration.
type Collector struct {
	Listen        string         `mapstructure:"listen"`
	HTTPListen    string         `mapstructure:"http_listen"`
	EnableSwagger bool           `mapstructure:"enable_swagger"`
	DatabasePath  string         `mapstructure:"database"`
	RetentionDays int            `mapstructure:"retention_days"`
	PurgeInterval time.Duration  `mapstructure:"purge_interval"`
	ClientSecret  string         `mapstructure:"client_secret"`
	ApiSecret     string         `mapstructure:"api_secret"`
	Log           logging.Config `mapstructure:"log"`
}

// Agent holds the diskcheck configuration.
type Agent struct {
	Volumes       []string       `mapstructure:"volumes"`
	Disks         []int          `mapstructure:"disks"`
	SourceTimeout time.Duration  `mapstructure:"source_timeout"`
	Format        string         `mapstructure:"format"`
	ScanInterval  time.Duration  `mapstructure:"scan_interval"`
	Collector     CollectorLink  `mapstructure:"collector"`
	Log           logging.Config `mapstructure:"log"`
}

// CollectorLink is where the agent submits reports.
type CollectorLink struct {
	Address      string `mapstructure:"address"`
	ClientSecret string `mapstructure:"client_secret"`
	ClientID     string `mapstructure:"client_id"`
}

var searchPaths = []string{".", "./configs", "/etc/diskhealth"}

// LoadCollector reads the collector configuration from file, environment
// (COLLECTOR_*) and flags, in increasing precedence.
func LoadCollector(cfgFile string, flags *pflag.FlagSet) (*Collector, error) {
	v := newViper("collector", "COLLECTOR", cfgFile)

	v.SetDefault("listen", ":9560")
	v.SetDefault("http_listen", ":9561")
	v.SetDefault("enable_swagger", true)
	v.SetDefault("database", "diskhealth.db")
	v.SetDefault("retention_days", 0)
	v.SetDefault("purge_interval", "24h")
	v.SetDefault("client_secret", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	if err := load(v, cfgFile, flags, map[string]string{
		"log-level": "log.level",
	}); err != nil {
		return nil, err
	}

	var cfg Collector
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadAgent reads the diskcheck configuration from file, environment
// (DISKCHECK_*) and flags, in increasing precedence.
func LoadAgent(cfgFile string, flags *pflag.FlagSet) (*Agent, error) {
	v := newViper("diskcheck", "DISKCHECK", cfgFile)

	v.SetDefault("volumes", []string{})
	v.SetDefault("disks", []int{})
	v.SetDefault("source_timeout", "30s")
	v.SetDefault("format", "text")
	v.SetDefault("scan_interval", "6h")
	v.SetDefault("collector.address", "")
	v.SetDefault("collector.client_secret", "")
	v.SetDefault("collector.client_id", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	if err := load(v, cfgFile, flags, map[string]string{
		"volume":        "volumes",
		"disk":          "disks",
		"timeout":       "source_timeout",
		"collector":     "collector.address",
		"client-secret": "collector.client_secret",
		"client-id":     "collector.client_id",
		"log-level":     "log.level",
	}); err != nil {
		return nil, err
	}

	var cfg Agent
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.SourceTimeout <= 0 {
		return nil, fmt.Errorf("source_timeout must be positive, got %s", cfg.SourceTimeout)
	}
	return &cfg, nil
}

func newViper(name, envPrefix, cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper, cfgFile string, flags *pflag.FlagSet, keys map[string]string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return BindFlags(v, flags, keys)
}

// BindFlags binds every flag in fs to a viper key. Flags listed in keys use
// the mapped key; others use their name with dashes turned into
// underscores. The config flag itself is skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	if fs == nil {
		return nil
	}
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		key, ok := keys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}
