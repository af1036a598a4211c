package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fes1       string        `yaml:"fes1"`
	Uboot      string        `yaml:"uboot"`
	Verbosity  int           `yaml:"verbosity"`
	StrictTags bool          `yaml:"strict_tags"`
	Devices    []DeviceIDs   `yaml:"devices"` //Extra VID:PID pairs to treat as FEL devices
	UART       ConsoleConfig `yaml:"uart"`
}

type DeviceIDs struct {
	VID uint16 `yaml:"vid"`
	PID uint16 `yaml:"pid"`
}

type ConsoleConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

func defaultConfig() *Config {
	return &Config{
		Fes1:      "fes1.bin",
		Uboot:     "uboot.bin",
		Verbosity: 2,
		UART:      ConsoleConfig{Baud: 115200},
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing '%s': %v", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %v", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Verbosity < 0 {
		return fmt.Errorf("verbosity must not be negative")
	}
	for i, dev := range c.Devices {
		if dev.VID == 0 || dev.PID == 0 {
			return fmt.Errorf("devices[%d]: vid and pid are required", i)
		}
	}
	if c.UART.Port != "" && c.UART.Baud <= 0 {
		return fmt.Errorf("uart: baud must be positive")
	}
	return nil
}
