package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/daemon"
	"github.com/wayswitch/wayswitch/internal/ipc"
	"github.com/wayswitch/wayswitch/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the switcher daemon",
	Long: `Start the background daemon and block until interrupted.

The daemon connects to the compositor, tracks open windows, captures
previews of the focused window and answers show/hide commands on its
control socket. Only one instance may run per session.`,
	Example: `  # Start the daemon
  wayswitch daemon

  # Start with a specific config file
  wayswitch daemon --config /path/to/config.yaml

  # Start with debug logging
  wayswitch daemon --log-level debug`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	cfg := configMgr.Get()
	level := cfg.LogLevel
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		level = viper.GetString("log_level")
	}
	logger.Init(level, true)

	d, err := daemon.New(configMgr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, ipc.ErrDaemonRunning) {
			// Deliberate early exit, not a failure.
			fmt.Fprintln(os.Stderr, "wayswitch daemon is already running")
			return nil
		}
		return err
	}
	return nil
}
