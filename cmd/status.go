package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/pkg/devnet"
)

var (
	watchStatus   bool
	watchInterval int
	historyLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the adapter state and recent settlements",
	Long: `Show the adapter's pause state, operator, retained surplus and the most
recent settlements.

Examples:
  swapper status
  swapper status --history 20
  swapper status --watch --interval 10`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	statusCmd.Flags().IntVar(&historyLimit, "history", 5, "Number of recent settlements to show")
}

type statusView struct {
	StatePath   string      `json:"state_path"`
	Operator    string      `json:"operator"`
	Adapter     string      `json:"adapter"`
	Router      string      `json:"router"`
	DstToken    string      `json:"dst_token"`
	State       string      `json:"state"`
	Surplus     string      `json:"surplus"`
	LastUpdated time.Time   `json:"last_updated"`
	Settlements interface{} `json:"settlements"`
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	manager, _ := newManager(cmd)

	if watchStatus {
		if jsonOutput {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			return
		}
		watchAdapterStatus(manager)
		return
	}

	session, err := manager.Open()
	if err != nil {
		fail(cmd, err)
	}
	if jsonOutput {
		printJSON(buildStatus(manager, session))
		return
	}
	displayStatus(manager, session)
}

func buildStatus(manager *devnet.Manager, session *devnet.Session) statusView {
	a := session.Adapter
	settlements := session.Settlements()
	if historyLimit >= 0 && len(settlements) > historyLimit {
		settlements = settlements[len(settlements)-historyLimit:]
	}
	return statusView{
		StatePath:   manager.StatePath(),
		Operator:    a.Operator().Hex(),
		Adapter:     a.Config().Address.Hex(),
		Router:      a.RouterAddress().Hex(),
		DstToken:    a.Config().DstToken.Hex(),
		State:       a.State().String(),
		Surplus:     a.Surplus().String(),
		LastUpdated: session.World.LastUpdated,
		Settlements: settlements,
	}
}

func watchAdapterStatus(manager *devnet.Manager) {
	fmt.Printf("\nWatching adapter status (%s)\n", color.CyanString(manager.StatePath()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	checkAndDisplayStatus(manager)

	// Then check periodically
	for range ticker.C {
		checkAndDisplayStatus(manager)
	}
}

func checkAndDisplayStatus(manager *devnet.Manager) {
	session, err := manager.Open()
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	displayStatus(manager, session)
}

func displayStatus(manager *devnet.Manager, session *devnet.Session) {
	view := buildStatus(manager, session)
	world := session.World

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        ADAPTER STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  State:           %s\n", coloredState(view.State))
	fmt.Printf("  Adapter:         %s\n", color.CyanString(view.Adapter))
	fmt.Printf("  Operator:        %s\n", view.Operator)
	fmt.Printf("  Router:          %s\n", view.Router)
	fmt.Printf("  Settles In:      %s\n", color.YellowString(world.TokenSymbol(world.Router.Quote)))
	fmt.Printf("  Surplus Held:    %s\n", color.GreenString(view.Surplus))
	fmt.Printf("  Last Updated:    %s\n", view.LastUpdated.Format("2006-01-02 15:04:05"))

	all := session.Settlements()
	shown := all
	if historyLimit >= 0 && len(shown) > historyLimit {
		shown = shown[len(shown)-historyLimit:]
	}
	if len(shown) > 0 {
		fmt.Printf("\n  Recent Settlements (%d of %d):\n", len(shown), len(all))
		for _, s := range shown {
			fmt.Printf("    %s  %s %s -> %s %s  surplus %s\n",
				color.HiBlackString(s.ID[:8]),
				s.AmountIn, world.TokenSymbol(s.SrcToken),
				s.AmountOut, world.TokenSymbol(s.DstToken),
				s.Surplus)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
