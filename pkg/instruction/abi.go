package instruction

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Method names understood by the codec
const (
	MethodSwap    = "swap"
	MethodUnoswap = "unoswap"
)

// routerV4ABI is the subset of the 1inch AggregationRouterV4 interface the
// adapter accepts as swap instructions.
const routerV4ABI = `[
  {
    "name": "swap",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {"name": "caller", "type": "address"},
      {"name": "desc", "type": "tuple", "components": [
        {"name": "srcToken", "type": "address"},
        {"name": "dstToken", "type": "address"},
        {"name": "srcReceiver", "type": "address"},
        {"name": "dstReceiver", "type": "address"},
        {"name": "amount", "type": "uint256"},
        {"name": "minReturnAmount", "type": "uint256"},
        {"name": "flags", "type": "uint256"},
        {"name": "permit", "type": "bytes"}
      ]},
      {"name": "data", "type": "bytes"}
    ],
    "outputs": [
      {"name": "returnAmount", "type": "uint256"},
      {"name": "gasLeft", "type": "uint256"}
    ]
  },
  {
    "name": "unoswap",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {"name": "srcToken", "type": "address"},
      {"name": "amount", "type": "uint256"},
      {"name": "minReturn", "type": "uint256"},
      {"name": "pools", "type": "bytes32[]"}
    ],
    "outputs": [
      {"name": "returnAmount", "type": "uint256"}
    ]
  }
]`

var routerABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(routerV4ABI))
	if err != nil {
		panic("instruction: invalid router ABI: " + err.Error())
	}
	routerABI = parsed
}

// ABI returns the parsed router ABI
func ABI() abi.ABI {
	return routerABI
}
