package cli

import (
	"github.com/xxxsen/gamedeck/internal/config"
)

func LoadConfig(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	return config.LoadFirst(config.DefaultPaths()...)
}
