package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wayswitch/wayswitch/internal/ipc"
)

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the switcher overlay",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ipc.NewClient().Hide(); err != nil {
			reportClientError(err)
			os.Exit(1)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hideCmd)
}
