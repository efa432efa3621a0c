package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/pkg/devnet"
)

var (
	initOperator string
	initBase     string
	initQuote    string
	initRate     int64
	initBonus    int64
	initReserve  string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new devnet with an adapter, a mock router and two tokens",
	Long: `Create a fresh devnet state file.

The adapter, the mock router and both tokens get addresses derived from the
operator address. The router is funded with --reserve units of both tokens
and swaps base <-> quote at --rate, paying --bonus extra units per swap so
there is surplus to retain.

Examples:
  swapper init --operator 0x00000000000000000000000000000000000000aa
  swapper init --base USDC --quote USDT --rate 1 --bonus 2 --reserve 1000000
  swapper init --force`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initOperator, "operator", "", "Operator address (default from SWAPPER_OPERATOR_KEY / SWAPPER_OPERATOR)")
	initCmd.Flags().StringVar(&initBase, "base", "USDC", "Base token symbol")
	initCmd.Flags().StringVar(&initQuote, "quote", "USDT", "Quote (settlement) token symbol")
	initCmd.Flags().Int64Var(&initRate, "rate", 1, "Quote units paid per base unit")
	initCmd.Flags().Int64Var(&initBonus, "bonus", 0, "Extra quote units paid on every swap")
	initCmd.Flags().StringVar(&initReserve, "reserve", "1000000", "Router reserve minted in both tokens")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing state file")
}

func runInit(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	manager, cfg := newManager(cmd)

	var operator common.Address
	if initOperator != "" {
		if !common.IsHexAddress(initOperator) {
			fail(cmd, fmt.Errorf("invalid operator address: %s", initOperator))
		}
		operator = common.HexToAddress(initOperator)
	} else {
		addr, err := cfg.OperatorAddress()
		if err != nil {
			fail(cmd, err)
		}
		operator = addr
	}

	reserve, ok := new(big.Int).SetString(initReserve, 10)
	if !ok || reserve.Sign() < 0 {
		fail(cmd, fmt.Errorf("invalid reserve: %s", initReserve))
	}

	world, err := manager.Init(devnet.InitParams{
		Operator:    operator,
		BaseSymbol:  initBase,
		QuoteSymbol: initQuote,
		Rate:        initRate,
		Bonus:       initBonus,
		Reserve:     reserve,
		Force:       initForce,
	})
	if err != nil {
		fail(cmd, err)
	}

	if jsonOutput {
		printJSON(world)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        DEVNET CREATED")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  State File:  %s\n", color.HiBlackString(manager.StatePath()))
	fmt.Printf("  Operator:    %s\n", color.CyanString(world.Operator.Hex()))
	fmt.Printf("  Adapter:     %s\n", color.CyanString(world.Adapter.Hex()))
	fmt.Printf("  Router:      %s\n", color.CyanString(world.Router.Address.Hex()))
	fmt.Printf("  Base:        %s %s\n", color.YellowString(world.TokenSymbol(world.Router.Base)), world.Router.Base.Hex())
	fmt.Printf("  Quote:       %s %s (settlement token)\n", color.YellowString(world.TokenSymbol(world.Router.Quote)), world.Router.Quote.Hex())
	fmt.Printf("  Rate:        %d (+%d bonus)\n", world.Router.Rate, world.Router.Bonus)
	fmt.Printf("  Reserve:     %s per token\n", reserve)
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
