package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/instruction"
	"oneinch-swapper/pkg/parser"
	"oneinch-swapper/pkg/swapper"
)

var (
	swapCaller   string
	swapCalldata string
	swapMin      string
	swapMethod   string
	noConfirm    bool
)

var swapCmd = &cobra.Command{
	Use:   "swap [<amount> <source-token> to <dest-token>]",
	Short: "Swap through the adapter",
	Long: `Swap through the adapter. Either describe the swap and let swapper build
the router calldata, or pass ready-made calldata with --calldata.

IMPORTANT:
  - The caller must have approved the adapter for the source amount
  - The caller receives exactly --min; any extra stays with the adapter

Examples:
  swapper swap 10 USDC to USDT --min 10 --caller 0xbb...
  swapper swap 10 USDC to USDT --min 9 --method unoswap --caller 0xbb... --yes
  swapper swap --calldata 0x7c025200... --caller 0xbb...`,
	Run: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapCaller, "caller", "", "Account executing the swap (REQUIRED)")
	swapCmd.Flags().StringVar(&swapCalldata, "calldata", "", "Router calldata (hex); replaces the swap description")
	swapCmd.Flags().StringVar(&swapMin, "min", "", "Minimum return in smallest units (REQUIRED with a description)")
	swapCmd.Flags().StringVar(&swapMethod, "method", instruction.MethodSwap, "Router method used to build calldata: swap or unoswap")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	session, _ := openSession(cmd)

	if swapCaller == "" {
		fail(cmd, fmt.Errorf("--caller is required"))
	}
	caller, err := resolveAccount(session.World, swapCaller)
	if err != nil {
		fail(cmd, err)
	}

	calldata := swapCalldataFrom(cmd, session.World, args)
	in, err := instruction.Decode(calldata)
	if err != nil {
		fail(cmd, fmt.Errorf("%w: %w", swapper.ErrMalformedInstruction, err))
	}

	if !jsonOutput {
		displaySwapPreview(session.World, caller, in)
		if !noConfirm && !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	settlement, err := session.Swap(ctx, caller, calldata)
	if err != nil {
		var slip *swapper.SlippageError
		if errors.As(err, &slip) && !jsonOutput {
			color.Red("\nRouter returned %s, below the minimum of %s. Nothing was moved.", slip.Returned, slip.MinReturn)
		}
		fail(cmd, err)
	}

	if jsonOutput {
		printJSON(settlement)
		return
	}
	displaySettlement(session.World, settlement)
}

func swapCalldataFrom(cmd *cobra.Command, world *devnet.World, args []string) []byte {
	if swapCalldata != "" {
		if len(args) > 0 {
			fail(cmd, fmt.Errorf("pass either --calldata or a swap description, not both"))
		}
		calldata, err := instruction.ParseHex(swapCalldata)
		if err != nil {
			fail(cmd, err)
		}
		return calldata
	}

	if len(args) == 0 {
		fail(cmd, fmt.Errorf("expected '<amount> <token> to <token>' or --calldata"))
	}
	req, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		fail(cmd, err)
	}
	if swapMin == "" {
		fail(cmd, fmt.Errorf("--min is required"))
	}

	src, err := world.ResolveToken(req.SourceToken)
	if err != nil {
		fail(cmd, err)
	}
	dst, err := world.ResolveToken(req.DestToken)
	if err != nil {
		fail(cmd, err)
	}
	calldata, err := buildCalldata(world, calldataParams{
		Method:    strings.ToLower(swapMethod),
		Src:       src,
		Dst:       dst,
		Amount:    parseUnits(cmd, req.Amount),
		MinReturn: parseUnits(cmd, swapMin),
		Receiver:  world.Adapter,
	})
	if err != nil {
		fail(cmd, err)
	}
	return calldata
}

func displaySwapPreview(world *devnet.World, caller common.Address, in *instruction.Instruction) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP PREVIEW")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Caller:            %s\n", color.CyanString(caller.Hex()))
	fmt.Printf("  Method:            %s\n", in.Method)
	fmt.Printf("  From:              %s %s\n", in.Amount, color.YellowString(world.TokenSymbol(in.SrcToken)))
	fmt.Printf("  You Receive:       %s %s\n", in.MinReturn, color.YellowString(world.TokenSymbol(world.Router.Quote)))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displaySettlement(world *devnet.World, s *swapper.Settlement) {
	color.Green("\n✓ Swap settled")
	fmt.Printf("  Settlement ID:   %s\n", color.CyanString(s.ID))
	fmt.Printf("  Paid In:         %s %s\n", s.AmountIn, color.YellowString(world.TokenSymbol(s.SrcToken)))
	fmt.Printf("  Router Returned: %s %s\n", s.AmountReturned, color.YellowString(world.TokenSymbol(s.DstToken)))
	fmt.Printf("  You Received:    %s %s\n", s.AmountOut, color.YellowString(world.TokenSymbol(s.DstToken)))
	fmt.Printf("  Surplus Kept:    %s\n\n", s.Surplus)
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
