// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	API struct {
		BaseURL string `mapstructure:"base_url"`
		Token   string `mapstructure:"token"`
	} `mapstructure:"api"`
	BotUsername         string `mapstructure:"bot_username"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	RefreshInterval     int    `mapstructure:"refresh_interval"`
	Database            struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "CREATOR_"
	// prefix. e.g., CREATOR_API_TOKEN will override the `api.token` key.
	viper.SetEnvPrefix("CREATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("api.base_url", "https://subs-saas.onrender.com/api/v1")
	viper.SetDefault("api.token", "")
	viper.SetDefault("bot_username", "oneclicksub_bot")
	viper.SetDefault("poll_interval_seconds", 3)
	viper.SetDefault("refresh_interval", 10)
	viper.SetDefault("database.path", "./creator.db")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
