package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wayswitch/wayswitch/internal/ipc"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ipc.NewClient().Ping(); err != nil {
			reportClientError(err)
			os.Exit(1)
		}
		fmt.Println("pong")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
