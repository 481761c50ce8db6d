package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "wayswitch",
		Short: "wayswitch - Alt-tab window switcher for Wayland",
		Long: `wayswitch overlays a window-switcher panel on a Wayland desktop.

A background daemon tracks open windows and captures previews of the
focused one; a hotkey-bound client command pops the overlay, cycles the
selection and activates the chosen window when the modifier is released.

Requires a compositor supporting the layer-shell, foreign-toplevel and
screencopy protocols (sway, Hyprland, KDE and friends).`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/wayswitch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
