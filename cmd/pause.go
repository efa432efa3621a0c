package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the adapter (operator only)",
	Long: `Pause the adapter. While paused every swap is rejected without moving
funds. Pausing an already paused adapter is an error.

Examples:
  swapper pause
  swapper pause --caller 0xaa...`,
	Args: cobra.NoArgs,
	Run:  runPause,
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume the adapter (operator only)",
	Long: `Resume swaps. Unpausing an active adapter is an error.

Examples:
  swapper unpause`,
	Args: cobra.NoArgs,
	Run:  runUnpause,
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)

	for _, c := range []*cobra.Command{pauseCmd, unpauseCmd} {
		c.Flags().String("caller", "", "Account sending the call (default: configured operator)")
	}
}

func runPause(cmd *cobra.Command, args []string) {
	runGateTransition(cmd, true)
}

func runUnpause(cmd *cobra.Command, args []string) {
	runGateTransition(cmd, false)
}

func runGateTransition(cmd *cobra.Command, pause bool) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	session, cfg := openSession(cmd)
	caller := callerFlag(cmd, session.World, cfg)

	op := session.Unpause
	if pause {
		op = session.Pause
	}
	if err := op(caller); err != nil {
		fail(cmd, err)
	}

	state := session.Adapter.State()
	if jsonOutput {
		printJSON(map[string]interface{}{
			"state":  state.String(),
			"paused": session.Adapter.Paused(),
			"caller": caller.Hex(),
		})
		return
	}
	printSuccess(fmt.Sprintf("%s Adapter is now %s (by %s)", color.GreenString("✓"), coloredState(state.String()), shortAddr(caller)))
}

func coloredState(state string) string {
	if state == "paused" {
		return color.RedString(state)
	}
	return color.GreenString(state)
}

func shortAddr(a common.Address) string {
	h := a.Hex()
	return h[:8] + "..." + h[len(h)-6:]
}
