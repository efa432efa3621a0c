package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/ledger"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List the devnet tokens",
	Long: `List the tokens registered on the devnet with the router reserve and the
adapter's holdings of each.

Examples:
  swapper list-tokens
  swapper list-tokens --symbol USD`,
	Args: cobra.NoArgs,
	Run:  runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

type tokenRow struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
	Role    string `json:"role"`
	Reserve string `json:"router_reserve"`
	Adapter string `json:"adapter_balance"`
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	session, _ := openSession(cmd)

	rows := tokenRows(session.World, session.Ledger)
	if filterSymbol != "" {
		var temp []tokenRow
		for _, row := range rows {
			if strings.Contains(row.Symbol, strings.ToUpper(filterSymbol)) {
				temp = append(temp, row)
			}
		}
		rows = temp
	}

	if jsonOutput {
		printJSON(rows)
		return
	}
	displayTokens(rows)
}

func tokenRows(world *devnet.World, l *ledger.Ledger) []tokenRow {
	rows := make([]tokenRow, 0, len(world.Tokens))
	for symbol, addr := range world.Tokens {
		role := "base"
		if addr == world.Router.Quote {
			role = "settlement"
		}
		rows = append(rows, tokenRow{
			Symbol:  symbol,
			Address: addr.Hex(),
			Role:    role,
			Reserve: l.BalanceOf(addr, world.Router.Address).String(),
			Adapter: l.BalanceOf(addr, world.Adapter).String(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

func displayTokens(rows []tokenRow) {
	if len(rows) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                              DEVNET TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	for _, row := range rows {
		fmt.Printf("\n  %-10s  %-10s  %s\n",
			color.YellowString(row.Symbol),
			row.Role,
			color.HiBlackString(row.Address))
		fmt.Printf("              router reserve %s, adapter holds %s\n", row.Reserve, row.Adapter)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(rows))
}
