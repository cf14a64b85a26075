package config

import (
	"io/ioutil"
	"log"
	"os"

	"github.com/ghodss/yaml"
	validator "gopkg.in/go-playground/validator.v9"
)

type BridgeConfig struct {
	Server   ServerConfig   `json:"server"`
	Hosting  HostingConfig  `json:"hosting"`
	Dispatch DispatchConfig `json:"dispatch"`
	Journal  JournalConfig  `json:"journal"`
	IsDev    bool           `json:"is_dev"`
}

type ServerConfig struct {
	Address string `json:"address" validate:"required"`
	// Secret guards the submission endpoint. The yaml value is a local
	// development fallback only; production deployments must set the
	// SUBMISSION_SECRET environment variable.
	Secret string `json:"secret" validate:"required"`
}

type HostingConfig struct {
	Token          string `json:"token" validate:"required"`
	APIBase        string `json:"api_base"` // https://api.github.com
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type DispatchConfig struct {
	Mode                string `json:"mode" validate:"required,oneof=blocking async"`
	MaxRetries          int    `json:"max_retries"`
	InitialDelaySeconds int    `json:"initial_delay_seconds"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
}

type JournalConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxRecords int    `json:"max_records"`
}

// LoadConfig loads taskbridge config from file and environment
func LoadConfig() (config BridgeConfig, err error) {
	configPaths := []string{
		"/etc/taskbridge/config.yml",
		"../../utils/config.yml",
		"./utils/config.yml",
	}
	configPath := os.Getenv("BRIDGE_CONFIG_PATH")
	isDev := os.Getenv("DEV") == "1"
	yamlFile, readErr := ioutil.ReadFile(configPath)
	if readErr != nil {
		// load from predefined configPaths when no BRIDGE_CONFIG_PATH set
		for _, path := range configPaths {
			yamlFile, readErr = ioutil.ReadFile(path)
			if readErr == nil {
				log.Println("load config from : ", path)
				break
			}
		}
	}
	if readErr == nil {
		err = yaml.Unmarshal(yamlFile, &config)
		if err != nil {
			return
		}
	}

	// Environment always wins over the config file.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.Hosting.Token = token
	}
	if secret := os.Getenv("SUBMISSION_SECRET"); secret != "" {
		config.Server.Secret = secret
	}

	applyDefaults(&config)
	config.IsDev = isDev
	if isDev && config.Server.Secret != "" && os.Getenv("SUBMISSION_SECRET") == "" {
		log.Println("WARNING: using submission secret from config file, this is insecure outside local development")
	}

	validate := validator.New()
	err = validate.Struct(config)

	return
}

func applyDefaults(config *BridgeConfig) {
	if config.Server.Address == "" {
		config.Server.Address = "http://localhost:8080"
	}
	if config.Hosting.APIBase == "" {
		config.Hosting.APIBase = "https://api.github.com"
	}
	if config.Hosting.TimeoutSeconds <= 0 {
		config.Hosting.TimeoutSeconds = 30
	}
	if config.Dispatch.Mode == "" {
		config.Dispatch.Mode = "blocking"
	}
	if config.Dispatch.MaxRetries <= 0 {
		config.Dispatch.MaxRetries = 5
	}
	if config.Dispatch.InitialDelaySeconds <= 0 {
		config.Dispatch.InitialDelaySeconds = 1
	}
	if config.Dispatch.TimeoutSeconds <= 0 {
		config.Dispatch.TimeoutSeconds = 10
	}
	if config.Journal.MaxRecords <= 0 {
		config.Journal.MaxRecords = 1000
	}
}
