package config

import (
	"os"
	"strings"
	"sync"
)

// EnvModeKey is the environment variable the runtime mode is read from.
const EnvModeKey = "IMAGEFLOW_ENV"

// Mode is the runtime environment the service was started in. It selects
// which layered config files apply.
type Mode string

const (
	DevMode  Mode = "development"
	ProdMode Mode = "production"
	TestMode Mode = "test"
)

var (
	currentMode Mode
	modeOnce    sync.Once
)

// ParseMode normalizes common spellings; anything unknown maps to DevMode.
func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProdMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode resolves the runtime mode once per process.
func CurrentMode() Mode {
	modeOnce.Do(func() {
		currentMode = ParseMode(os.Getenv(EnvModeKey))
	})
	return currentMode
}

// suffixes returns the file-name suffixes a mode accepts, most generic
// first so later files override earlier ones.
func (m Mode) suffixes() []string {
	switch m {
	case ProdMode:
		return []string{"", ".local", ".production", ".production.local", ".prod", ".prod.local"}
	case TestMode:
		return []string{"", ".local", ".test", ".test.local"}
	default:
		return []string{"", ".local", ".development", ".development.local", ".dev", ".dev.local"}
	}
}
