package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"cartrules/pkg/logging"
)

const (
	userConfigDir  = ".config/cartrules"
	configFileName = "config.yaml"
)

var yamlLine = regexp.MustCompile(`line (\d+)`)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath on top of the defaults.
// A missing file yields the defaults. The result is not validated.
func LoadConfig(configPath string) (CartRulesConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return CartRulesConfig{}, NewConfigurationError(configFilePath, "io", err.Error())
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		cerr := NewConfigurationError(configFilePath, "parse", "malformed YAML")
		cerr.Details = err.Error()
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			cerr.LineNumber, _ = strconv.Atoi(m[1])
		}
		cerr.Suggestions = []string{"durations use Go syntax such as 500ms or 30s"}
		return CartRulesConfig{}, cerr
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}
