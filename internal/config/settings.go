package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// FirmwareDirName is the directory, next to the executable, that holds
// firmware images when CHARGERFW_FIRMWARE_DIR is not set.
const FirmwareDirName = "firmware"

// Settings are the user-tunable values of a chargerfw process.
type Settings struct {
	LogLevel    string `env:"CHARGERFW_LOG_LEVEL" env-default:"info" env-description:"Log level: debug, info, warn, error or off"`
	FirmwareDir string `env:"CHARGERFW_FIRMWARE_DIR" env-description:"Directory holding main_*.signed.bin and rear_*.signed.bin"`
	SimAddr     string `env:"CHARGERFW_SIM_ADDR" env-default:":8000" env-description:"Listen address of the device simulator"`
}

// LoadSettings reads Settings from the environment and resolves the
// default firmware directory.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if s.FirmwareDir == "" {
		dir, err := defaultFirmwareDir()
		if err != nil {
			return nil, err
		}
		s.FirmwareDir = dir
	}

	return &s, nil
}

// SettingsHelp describes the supported environment variables.
func SettingsHelp() string {
	desc, err := cleanenv.GetDescription(&Settings{}, nil)
	if err != nil {
		return ""
	}
	return desc
}

func defaultFirmwareDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), FirmwareDirName), nil
}
