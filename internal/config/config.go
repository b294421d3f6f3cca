package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/neilberkman/skypetext/pkg/platform"
)

// AppName names the config and data directories and prefixes env variables
const AppName = "skypetext"

type Config struct {
	Output struct {
		Dir      string `mapstructure:"dir"`
		Timezone string `mapstructure:"timezone"`
		Backup   bool   `mapstructure:"backup"`
		BOM      bool   `mapstructure:"bom"`
	} `mapstructure:"output"`

	Write struct {
		MaxTries   int           `mapstructure:"max_tries"`
		RetryDelay time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"write"`

	Archive struct {
		Member string `mapstructure:"member"`
	} `mapstructure:"archive"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Search struct {
		MaxResults    int `mapstructure:"max_results"`
		SnippetLength int `mapstructure:"snippet_length"`
	} `mapstructure:"search"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var (
	cfg  *Config
	dirs *platform.Dirs
)

// Init loads the configuration. Values come from, in increasing priority:
// defaults, config.yaml in the config dir (or configFile), a .env file in
// the working directory and SKYPETEXT_* environment variables. Calling Init
// again discards the previous configuration.
func Init(configFile string) error {
	appDirs, err := platform.GetAppDirs(AppName)
	if err != nil {
		return fmt.Errorf("failed to get app directories: %w", err)
	}
	dirs = appDirs

	// .env is optional
	_ = godotenv.Load()

	viper.Reset()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(dirs.Config)
	}

	viper.SetEnvPrefix(strings.ToUpper(AppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's OK if the config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dirs.Data, AppName+".db")
	}
	if c.Write.MaxTries < 1 {
		c.Write.MaxTries = 1
	}

	cfg = c
	return nil
}

func setDefaults() {
	viper.SetDefault("output.dir", "chats")
	viper.SetDefault("output.timezone", "UTC")
	viper.SetDefault("output.backup", true)
	viper.SetDefault("output.bom", true)

	viper.SetDefault("write.max_tries", 20)
	viper.SetDefault("write.retry_delay", 5*time.Second)

	viper.SetDefault("archive.member", "messages.json")

	viper.SetDefault("database.path", "")

	viper.SetDefault("search.max_results", 50)
	viper.SetDefault("search.snippet_length", 64)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

func GetDirs() *platform.Dirs {
	if dirs == nil {
		panic("config not initialized")
	}
	return dirs
}

// SaveDefaults writes the current settings to config.yaml in the config dir
func SaveDefaults() error {
	configPath := filepath.Join(dirs.Config, "config.yaml")
	return viper.WriteConfigAs(configPath)
}
