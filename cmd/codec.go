package cmd

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/instruction"
)

var (
	encodeMethod   string
	encodeSrc      string
	encodeDst      string
	encodeAmount   string
	encodeMin      string
	encodeReceiver string
	encodePools    []string
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build 1inch V4 router calldata",
	Long: `Build swap or unoswap calldata for the router. Tokens may be devnet
symbols (when a state file exists) or hex addresses.

Pools are given as <pair>[,reversed][,unwrap].

Examples:
  swapper encode --src USDC --dst USDT --amount 10 --min 10
  swapper encode --method unoswap --src USDC --amount 10 --min 9 --pool 0xb4e1...c9dc,reversed`,
	Args: cobra.NoArgs,
	Run:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <calldata>",
	Short: "Decode 1inch V4 router calldata",
	Long: `Decode swap or unoswap calldata and show the fields the adapter checks.

Examples:
  swapper decode 0x2e95b6c8...`,
	Args: cobra.ExactArgs(1),
	Run:  runDecode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)

	encodeCmd.Flags().StringVar(&encodeMethod, "method", instruction.MethodSwap, "Router method: swap or unoswap")
	encodeCmd.Flags().StringVar(&encodeSrc, "src", "", "Source token (REQUIRED)")
	encodeCmd.Flags().StringVar(&encodeDst, "dst", "", "Destination token (swap only)")
	encodeCmd.Flags().StringVar(&encodeAmount, "amount", "", "Source amount in smallest units (REQUIRED)")
	encodeCmd.Flags().StringVar(&encodeMin, "min", "0", "Minimum return in smallest units")
	encodeCmd.Flags().StringVar(&encodeReceiver, "receiver", "adapter", "Destination receiver (swap only)")
	encodeCmd.Flags().StringArrayVar(&encodePools, "pool", nil, "Unoswap hop <pair>[,reversed][,unwrap] (repeatable)")
}

// optionalWorld loads the devnet when one exists so symbols resolve
func optionalWorld(cmd *cobra.Command) *devnet.World {
	manager, _ := newManager(cmd)
	session, err := manager.Open()
	if errors.Is(err, devnet.ErrNoState) {
		return &devnet.World{Tokens: map[string]common.Address{}}
	}
	if err != nil {
		fail(cmd, err)
	}
	return session.World
}

type calldataParams struct {
	Method    string
	Src       common.Address
	Dst       common.Address
	Amount    *big.Int
	MinReturn *big.Int
	Receiver  common.Address
	Pools     []instruction.Pool
}

func buildCalldata(world *devnet.World, p calldataParams) ([]byte, error) {
	switch p.Method {
	case instruction.MethodSwap:
		return instruction.EncodeSwap(world.Adapter, instruction.Description{
			SrcToken:        p.Src,
			DstToken:        p.Dst,
			SrcReceiver:     world.Adapter,
			DstReceiver:     p.Receiver,
			Amount:          p.Amount,
			MinReturnAmount: p.MinReturn,
		}, nil)
	case instruction.MethodUnoswap:
		return instruction.EncodeUnoswap(p.Src, p.Amount, p.MinReturn, p.Pools)
	default:
		return nil, fmt.Errorf("unknown method %q (want swap or unoswap)", p.Method)
	}
}

func parsePool(s string) (instruction.Pool, error) {
	parts := strings.Split(s, ",")
	if !common.IsHexAddress(parts[0]) {
		return instruction.Pool{}, fmt.Errorf("invalid pool pair address: %s", parts[0])
	}
	var reversed, unwrap bool
	for _, flag := range parts[1:] {
		switch strings.TrimSpace(strings.ToLower(flag)) {
		case "reversed":
			reversed = true
		case "unwrap":
			unwrap = true
		default:
			return instruction.Pool{}, fmt.Errorf("unknown pool flag %q", flag)
		}
	}
	return instruction.NewPool(common.HexToAddress(parts[0]), reversed, unwrap), nil
}

func runEncode(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	world := optionalWorld(cmd)

	if encodeSrc == "" || encodeAmount == "" {
		fail(cmd, fmt.Errorf("--src and --amount are required"))
	}
	src, err := world.ResolveToken(encodeSrc)
	if err != nil {
		fail(cmd, err)
	}
	p := calldataParams{
		Method:    strings.ToLower(encodeMethod),
		Src:       src,
		Amount:    parseUnits(cmd, encodeAmount),
		MinReturn: parseUnits(cmd, encodeMin),
	}
	if p.Method == instruction.MethodSwap {
		if encodeDst == "" {
			fail(cmd, fmt.Errorf("--dst is required for swap"))
		}
		if p.Dst, err = world.ResolveToken(encodeDst); err != nil {
			fail(cmd, err)
		}
		if p.Receiver, err = resolveAccount(world, encodeReceiver); err != nil {
			fail(cmd, err)
		}
	}
	for _, raw := range encodePools {
		pool, err := parsePool(raw)
		if err != nil {
			fail(cmd, err)
		}
		p.Pools = append(p.Pools, pool)
	}

	calldata, err := buildCalldata(world, p)
	if err != nil {
		fail(cmd, err)
	}

	if jsonOutput {
		printJSON(map[string]string{"method": p.Method, "calldata": hexutil.Encode(calldata)})
		return
	}
	fmt.Println(hexutil.Encode(calldata))
}

func runDecode(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	calldata, err := instruction.ParseHex(args[0])
	if err != nil {
		fail(cmd, err)
	}
	in, err := instruction.Decode(calldata)
	if err != nil {
		fail(cmd, err)
	}

	if jsonOutput {
		printJSON(decodedView(in))
		return
	}
	displayInstruction(in)
}

type poolView struct {
	Pair       common.Address `json:"pair"`
	Numerator  uint32         `json:"numerator"`
	Reversed   bool           `json:"reversed"`
	UnwrapWeth bool           `json:"unwrap_weth"`
}

func decodedView(in *instruction.Instruction) map[string]interface{} {
	out := map[string]interface{}{
		"method":     in.Method,
		"selector":   hexutil.Encode(in.Selector[:]),
		"src_token":  in.SrcToken,
		"amount":     in.Amount.String(),
		"min_return": in.MinReturn.String(),
	}
	if in.Method == instruction.MethodSwap {
		out["executor"] = in.Executor
		out["dst_token"] = in.DstToken
		out["src_receiver"] = in.SrcReceiver
		out["dst_receiver"] = in.DstReceiver
		if in.Flags != nil {
			out["flags"] = in.Flags.String()
		}
		out["data"] = hexutil.Encode(in.Data)
	}
	if len(in.Pools) > 0 {
		pools := make([]poolView, len(in.Pools))
		for i, p := range in.Pools {
			pools[i] = poolView{Pair: p.Address(), Numerator: p.Numerator(), Reversed: p.Reversed(), UnwrapWeth: p.UnwrapWeth()}
		}
		out["pools"] = pools
	}
	return out
}

func displayInstruction(in *instruction.Instruction) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                      ROUTER INSTRUCTION")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Method:        %s (%s)\n", color.CyanString(in.Method), hexutil.Encode(in.Selector[:]))
	fmt.Printf("  Source Token:  %s\n", in.SrcToken.Hex())
	if in.DeclaresDstToken() {
		fmt.Printf("  Dest Token:    %s\n", in.DstToken.Hex())
		fmt.Printf("  Dest Receiver: %s\n", in.DstReceiver.Hex())
	}
	fmt.Printf("  Amount:        %s\n", color.YellowString(in.Amount.String()))
	fmt.Printf("  Min Return:    %s\n", color.YellowString(in.MinReturn.String()))
	for i, p := range in.Pools {
		flags := []string{}
		if p.Reversed() {
			flags = append(flags, "reversed")
		}
		if p.UnwrapWeth() {
			flags = append(flags, "unwrap")
		}
		fmt.Printf("  Pool %d:        %s numerator %d %s\n", i, p.Address().Hex(), p.Numerator(), color.HiBlackString(strings.Join(flags, ",")))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
