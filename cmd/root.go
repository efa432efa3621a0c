package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oneinch-swapper/config"
	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/logging"
	"oneinch-swapper/pkg/swapper"
)

var rootCmd = &cobra.Command{
	Use:   "swapper",
	Short: "A pausable 1inch V4 swap adapter running on a local devnet",
	Long: `swapper runs a pausable adapter in front of a 1inch V4 aggregation router.
The caller's tokens are pulled into custody, routed with opaque router
calldata, and exactly the declared minimum return is paid back. Anything the
router returns above the minimum stays with the adapter.

State (balances, allowances, pause flag, settlement history) lives in a local
state file so every command sees the effects of the previous one.

Examples:
  swapper init --operator 0xaa... --base USDC --quote USDT --rate 1 --bonus 2
  swapper mint USDC 0xbb... 100
  swapper approve USDC 0xbb... 100
  swapper swap 10 USDC to USDT --min 10 --caller 0xbb...
  swapper pause
  swapper status`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("state", "", "State file (default $HOME/"+devnet.DefaultStorageFileName+")")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

// fail prints err and exits; JSON mode prints a machine-readable error
func fail(cmd *cobra.Command, err error) {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		printJSON(map[string]string{"error": err.Error(), "reason": swapper.Reason(err)})
	} else {
		printError(err)
	}
	os.Exit(1)
}

func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fail(cmd, err)
	}
	if state, _ := cmd.Flags().GetString("state"); state != "" {
		cfg.StatePath = state
	}
	config.Set(cfg)
	return cfg
}

// cliLogger only logs with --verbose; user-facing output goes to stdout
func cliLogger(cmd *cobra.Command, cfg *config.Config) *zap.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		return zap.NewNop()
	}
	logger, err := logging.New("debug", cfg.LogJSON)
	if err != nil {
		fail(cmd, err)
	}
	return logger
}

func newManager(cmd *cobra.Command, opts ...devnet.ManagerOption) (*devnet.Manager, *config.Config) {
	cfg := loadConfig(cmd)
	opts = append([]devnet.ManagerOption{devnet.WithLogger(cliLogger(cmd, cfg))}, opts...)
	manager, err := devnet.NewManager(cfg.StatePath, opts...)
	if err != nil {
		fail(cmd, err)
	}
	return manager, cfg
}

func openSession(cmd *cobra.Command, opts ...devnet.ManagerOption) (*devnet.Session, *config.Config) {
	manager, cfg := newManager(cmd, opts...)
	session, err := manager.Open()
	if err != nil {
		fail(cmd, err)
	}
	return session, cfg
}

func commit(cmd *cobra.Command, session *devnet.Session) {
	if err := session.Commit(); err != nil {
		fail(cmd, fmt.Errorf("failed to save state: %w", err))
	}
}

// resolveAccount accepts a hex address or one of the named devnet accounts
func resolveAccount(world *devnet.World, s string) (common.Address, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "operator":
		return world.Operator, nil
	case "adapter":
		return world.Adapter, nil
	case "router":
		return world.Router.Address, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return common.HexToAddress(s), nil
}

// callerFlag resolves --caller, defaulting to the configured operator
func callerFlag(cmd *cobra.Command, world *devnet.World, cfg *config.Config) common.Address {
	raw, _ := cmd.Flags().GetString("caller")
	if raw != "" {
		addr, err := resolveAccount(world, raw)
		if err != nil {
			fail(cmd, err)
		}
		return addr
	}
	addr, err := cfg.OperatorAddress()
	if err != nil {
		fail(cmd, err)
	}
	return addr
}
