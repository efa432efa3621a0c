package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/config"
	"oneinch-swapper/pkg/chain"
	"oneinch-swapper/pkg/oneinch"
	"oneinch-swapper/pkg/parser"
)

var (
	quoteDecimals int
	quoteSender   string
	quoteSlippage float64
	quoteCalldata bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Price a swap with the 1inch API",
	Long: `Price a swap with the 1inch aggregation API. Tokens are hex addresses on
the configured chain (SWAPPER_CHAIN_ID). When SWAPPER_RPC_URL is set the
source token's decimals are read from chain; otherwise pass --decimals.

With --calldata the router calldata is fetched for --sender (the adapter) and
printed so it can be handed to 'swapper swap --calldata'.

Examples:
  swapper quote 100 0xA0b8...eB48 to 0xC02a...6Cc2 --decimals 6
  swapper quote 100 0xA0b8...eB48 to 0xC02a...6Cc2 --calldata --sender 0xcc... --slippage 0.5`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().IntVar(&quoteDecimals, "decimals", -1, "Source token decimals (read from chain when omitted)")
	quoteCmd.Flags().StringVar(&quoteSender, "sender", "", "Address that will call the router (required with --calldata)")
	quoteCmd.Flags().Float64Var(&quoteSlippage, "slippage", 1, "Allowed slippage in percent")
	quoteCmd.Flags().BoolVar(&quoteCalldata, "calldata", false, "Fetch router calldata instead of a plain quote")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg := loadConfig(cmd)

	req, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		fail(cmd, err)
	}
	if !common.IsHexAddress(req.SourceToken) || !common.IsHexAddress(req.DestToken) {
		fail(cmd, fmt.Errorf("quote needs hex token addresses"))
	}
	from := common.HexToAddress(req.SourceToken)
	to := common.HexToAddress(req.DestToken)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	stopSpinner := func() {
		if !jsonOutput {
			s.Stop()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	decimals, err := sourceDecimals(ctx, cfg, from)
	if err != nil {
		stopSpinner()
		fail(cmd, err)
	}
	amount, err := chain.ParseUnits(req.Amount, decimals)
	if err != nil {
		stopSpinner()
		fail(cmd, err)
	}

	api := oneinch.NewClient(cfg.OneInchBaseURL, cfg.ChainID, cfg.OneInchAPIKey)

	if verbose {
		fmt.Printf("\nDebug: requesting %s units of %s from %s\n", amount, from.Hex(), api.Base)
	}

	if !quoteCalldata {
		quote, err := api.GetQuote(ctx, from, to, amount)
		stopSpinner()
		if err != nil {
			fail(cmd, err)
		}
		if jsonOutput {
			printJSON(quote)
			return
		}
		displayQuote(req, quote.FromTokenAmount, quote.ToTokenAmount, quote.ToToken)
		return
	}

	if !common.IsHexAddress(quoteSender) {
		stopSpinner()
		fail(cmd, fmt.Errorf("--sender must be a hex address with --calldata"))
	}
	swap, in, err := api.GetSwap(ctx, oneinch.SwapParams{
		From:     from,
		To:       to,
		Amount:   amount,
		Slippage: quoteSlippage,
		Sender:   common.HexToAddress(quoteSender),
	})
	stopSpinner()
	if err != nil {
		fail(cmd, err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"from_amount": swap.FromTokenAmount,
			"to_amount":   swap.ToTokenAmount,
			"min_return":  in.MinReturn.String(),
			"method":      in.Method,
			"router":      swap.Tx.To,
			"calldata":    hexutil.Encode(swap.Tx.Data),
		})
		return
	}
	displayQuote(req, swap.FromTokenAmount, swap.ToTokenAmount, swap.ToToken)
	fmt.Printf("  Method:       %s\n", in.Method)
	fmt.Printf("  Min Return:   %s (what the adapter pays out)\n", color.YellowString(in.MinReturn.String()))
	fmt.Printf("  Router:       %s\n\n", swap.Tx.To.Hex())
	fmt.Println("Calldata:")
	color.Cyan("  %s\n", hexutil.Encode(swap.Tx.Data))
}

func sourceDecimals(ctx context.Context, cfg *config.Config, token common.Address) (uint8, error) {
	if quoteDecimals >= 0 {
		if quoteDecimals > 77 {
			return 0, fmt.Errorf("decimals out of range: %d", quoteDecimals)
		}
		return uint8(quoteDecimals), nil
	}
	if cfg.RPCURL == "" {
		return 0, fmt.Errorf("pass --decimals or set SWAPPER_RPC_URL to read them from chain")
	}
	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return 0, err
	}
	defer client.Close()
	return client.Decimals(ctx, token)
}

func displayQuote(req *parser.SwapRequest, fromAmount, toAmount string, toToken oneinch.Token) {
	out := toAmount
	if v, ok := new(big.Int).SetString(toAmount, 10); ok {
		out = chain.FormatUnits(v, toToken.Decimals)
	}
	symbol := toToken.Symbol
	if symbol == "" {
		symbol = req.DestToken
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:         %s %s %s\n", req.Amount, color.YellowString(req.SourceToken), color.HiBlackString("(%s raw)", fromAmount))
	fmt.Printf("  To:           ~%s %s\n", out, color.YellowString(symbol))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
