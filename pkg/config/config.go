package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultGenesisTimestamp is the timestamp of the genesis block when the
	// configuration does not set one.
	DefaultGenesisTimestamp = "2018-06-01T00:00:00"
	// DefaultExecutionTimeout is the per-transaction sandbox quantum in
	// milliseconds.
	DefaultExecutionTimeout = 10000
	// DefaultContractCacheSize is the number of compiled contract artifacts
	// kept in memory.
	DefaultContractCacheSize = 64
)

// Config is the top-level struct representing the config for the node.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// ApplicationConfiguration is the config specific to the node.
type ApplicationConfiguration struct {
	Chain  Chain  `yaml:"Chain"`
	Logger Logger `yaml:"Logger"`
}

// Chain contains the execution engine configuration.
type Chain struct {
	// GenesisTimestamp is the opaque timestamp string of block 0.
	GenesisTimestamp string `yaml:"GenesisTimestamp"`
	// ExecutionTimeout is the wall-clock ceiling of a single top-level
	// contract run, in milliseconds.
	ExecutionTimeout int64 `yaml:"ExecutionTimeout"`
	// ContractCacheSize bounds the LRU cache of compiled contract
	// artifacts.
	ContractCacheSize int `yaml:"ContractCacheSize"`
}

// Validate returns an error if Chain configuration is not valid.
func (c Chain) Validate() error {
	if c.ExecutionTimeout < 0 {
		return fmt.Errorf("invalid ExecutionTimeout: %d", c.ExecutionTimeout)
	}
	if c.ContractCacheSize < 0 {
		return fmt.Errorf("invalid ContractCacheSize: %d", c.ContractCacheSize)
	}
	return nil
}

// Default returns the configuration every field of which is set to its
// default.
func Default() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			Chain: Chain{
				GenesisTimestamp:  DefaultGenesisTimestamp,
				ExecutionTimeout:  DefaultExecutionTimeout,
				ContractCacheSize: DefaultContractCacheSize,
			},
		},
	}
}

// LoadFile loads config from the provided path.
func LoadFile(configPath string) (Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return LoadFromBytes(configData)
}

// LoadFromBytes unmarshals config from the given bytes, filling unset fields
// with defaults.
func LoadFromBytes(data []byte) (Config, error) {
	config := Default()
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err = config.ApplicationConfiguration.Chain.Validate(); err != nil {
		return Config{}, err
	}
	if err = config.ApplicationConfiguration.Logger.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
