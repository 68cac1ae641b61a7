package config_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/f-sync/uiflow/internal/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	command := &cobra.Command{Use: "server"}
	config.BindFlags(command)

	loaded := config.Load()
	if loaded.Host != config.DefaultHost {
		t.Fatalf("expected default host %q, got %q", config.DefaultHost, loaded.Host)
	}
	if loaded.Port != config.DefaultPort {
		t.Fatalf("expected default port %d, got %d", config.DefaultPort, loaded.Port)
	}
}

func TestLoadHonorsFlagOverride(t *testing.T) {
	viper.Reset()
	command := &cobra.Command{Use: "server"}
	config.BindFlags(command)

	if err := command.Flags().Set(config.FlagPort, "9090"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	loaded := config.Load()
	if loaded.Port != 9090 {
		t.Fatalf("expected overridden port 9090, got %d", loaded.Port)
	}
}
