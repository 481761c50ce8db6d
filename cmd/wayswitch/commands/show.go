package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wayswitch/wayswitch/internal/ipc"
)

var (
	showNext      bool
	showPrev      bool
	showModifiers string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the switcher overlay",
	Long: `Show the overlay, or advance the selection if already visible.

Bind this command to your compositor's alt-tab key. The modifiers flag
names the keys that must stay held for the overlay to remain open;
releasing them activates the selected window.`,
	Example: `  # Typical alt-tab binding
  wayswitch show --next --modifiers-held=alt

  # Cycle backwards (shift+alt+tab)
  wayswitch show --previous --modifiers-held=alt,shift`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showNext, "next", false, "select the next window")
	showCmd.Flags().BoolVar(&showPrev, "previous", false, "select the previous window")
	showCmd.Flags().StringVar(&showModifiers, "modifiers-held", "", "comma-separated modifiers that keep the overlay open (alt, ctrl, shift, super)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if showNext && showPrev {
		return fmt.Errorf("--next and --previous are mutually exclusive")
	}

	var direction ipc.Direction
	if showNext {
		direction = ipc.DirectionNext
	}
	if showPrev {
		direction = ipc.DirectionPrev
	}

	var modifiers []string
	if showModifiers != "" {
		for _, m := range strings.Split(showModifiers, ",") {
			if m = strings.TrimSpace(m); m != "" {
				modifiers = append(modifiers, m)
			}
		}
	}

	if err := ipc.NewClient().Show(direction, modifiers); err != nil {
		reportClientError(err)
		os.Exit(1)
	}
	fmt.Println("ok")
	return nil
}

func reportClientError(err error) {
	if errors.Is(err, ipc.ErrDaemonUnreachable) {
		fmt.Fprintln(os.Stderr, "wayswitch daemon is not running (start it with: wayswitch daemon)")
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
