package cmd

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/pkg/chain"
	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/ledger"
)

var (
	approveSpender string
	balanceRPC     bool
)

var mintCmd = &cobra.Command{
	Use:   "mint <token> <account> <amount>",
	Short: "Mint devnet tokens to an account",
	Long: `Mint devnet tokens. Amounts are in the token's smallest unit.

Examples:
  swapper mint USDC 0xbb... 100
  swapper mint USDT adapter 5`,
	Args: cobra.ExactArgs(3),
	Run:  runMint,
}

var approveCmd = &cobra.Command{
	Use:   "approve <token> <owner> <amount>",
	Short: "Set the allowance an owner grants the adapter",
	Long: `Approve a spender (the adapter by default) to pull tokens from owner.
Use "max" for an infinite allowance.

Examples:
  swapper approve USDC 0xbb... 100
  swapper approve USDC 0xbb... max
  swapper approve USDC 0xbb... 0 --spender router`,
	Args: cobra.ExactArgs(3),
	Run:  runApprove,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <token> <account>",
	Short: "Show a token balance",
	Long: `Show a token balance on the devnet, or on a live network with --rpc.

Examples:
  swapper balance USDT 0xbb...
  swapper balance USDT adapter
  swapper balance 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 0xbb... --rpc`,
	Args: cobra.ExactArgs(2),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(mintCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(balanceCmd)

	approveCmd.Flags().StringVar(&approveSpender, "spender", "adapter", "Spender address or devnet account name")
	balanceCmd.Flags().BoolVar(&balanceRPC, "rpc", false, "Read the balance from SWAPPER_RPC_URL instead of the devnet")
}

func parseUnits(cmd *cobra.Command, s string) *big.Int {
	if s == "max" {
		return ledger.MaxUint256()
	}
	v, err := chain.ParseUnits(s, 0)
	if err != nil {
		fail(cmd, err)
	}
	return v
}

func tokenAndAccount(cmd *cobra.Command, world *devnet.World, token, account string) (common.Address, common.Address) {
	tok, err := world.ResolveToken(token)
	if err != nil {
		fail(cmd, err)
	}
	acct, err := resolveAccount(world, account)
	if err != nil {
		fail(cmd, err)
	}
	return tok, acct
}

func runMint(cmd *cobra.Command, args []string) {
	session, _ := openSession(cmd)
	token, account := tokenAndAccount(cmd, session.World, args[0], args[1])
	amount := parseUnits(cmd, args[2])

	if err := session.Ledger.Mint(token, account, amount); err != nil {
		fail(cmd, err)
	}
	commit(cmd, session)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		printJSON(map[string]string{
			"token":   token.Hex(),
			"account": account.Hex(),
			"minted":  amount.String(),
			"balance": session.Ledger.BalanceOf(token, account).String(),
		})
		return
	}
	printSuccess(fmt.Sprintf("%s Minted %s %s to %s (balance %s)",
		color.GreenString("✓"), amount, color.YellowString(session.World.TokenSymbol(token)),
		color.CyanString(account.Hex()), session.Ledger.BalanceOf(token, account)))
}

func runApprove(cmd *cobra.Command, args []string) {
	session, _ := openSession(cmd)
	token, owner := tokenAndAccount(cmd, session.World, args[0], args[1])
	spender, err := resolveAccount(session.World, approveSpender)
	if err != nil {
		fail(cmd, err)
	}
	amount := parseUnits(cmd, args[2])

	if err := session.Ledger.Approve(token, owner, spender, amount); err != nil {
		fail(cmd, err)
	}
	commit(cmd, session)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		printJSON(map[string]string{
			"token":     token.Hex(),
			"owner":     owner.Hex(),
			"spender":   spender.Hex(),
			"allowance": amount.String(),
		})
		return
	}
	printSuccess(fmt.Sprintf("%s %s may pull %s %s from %s",
		color.GreenString("✓"), color.CyanString(spender.Hex()), amount,
		color.YellowString(session.World.TokenSymbol(token)), color.CyanString(owner.Hex())))
}

func runBalance(cmd *cobra.Command, args []string) {
	if balanceRPC {
		runRPCBalance(cmd, args)
		return
	}

	session, _ := openSession(cmd)
	token, account := tokenAndAccount(cmd, session.World, args[0], args[1])
	balance := session.Ledger.BalanceOf(token, account)
	allowance := session.Ledger.Allowance(token, account, session.World.Adapter)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		printJSON(map[string]string{
			"token":             token.Hex(),
			"account":           account.Hex(),
			"balance":           balance.String(),
			"adapter_allowance": allowance.String(),
		})
		return
	}
	fmt.Printf("\n  %s %s\n", color.CyanString(account.Hex()), color.HiBlackString("on devnet"))
	fmt.Printf("  Balance:           %s %s\n", balance, color.YellowString(session.World.TokenSymbol(token)))
	fmt.Printf("  Adapter Allowance: %s\n\n", allowance)
}

func runRPCBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := loadConfig(cmd)

	if !common.IsHexAddress(args[0]) || !common.IsHexAddress(args[1]) {
		fail(cmd, fmt.Errorf("--rpc needs hex token and account addresses"))
	}
	token := common.HexToAddress(args[0])
	account := common.HexToAddress(args[1])

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading balance..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		s.Stop()
		fail(cmd, err)
	}
	defer client.Close()

	isContract, err := client.IsContract(ctx, token)
	if err == nil && !isContract {
		err = fmt.Errorf("no contract deployed at %s", token.Hex())
	}
	var (
		balance  *big.Int
		decimals uint8
		symbol   string
	)
	if err == nil {
		balance, err = client.BalanceOf(ctx, token, account)
	}
	if err == nil {
		decimals, err = client.Decimals(ctx, token)
	}
	if err == nil {
		symbol, err = client.Symbol(ctx, token)
	}
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		fail(cmd, err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"token":     token.Hex(),
			"symbol":    symbol,
			"account":   account.Hex(),
			"balance":   balance.String(),
			"decimals":  decimals,
			"formatted": chain.FormatUnits(balance, decimals),
		})
		return
	}
	fmt.Printf("\n  %s\n", color.CyanString(account.Hex()))
	fmt.Printf("  Balance: %s %s %s\n\n", chain.FormatUnits(balance, decimals), color.YellowString(symbol),
		color.HiBlackString("(%s raw)", balance))
}
