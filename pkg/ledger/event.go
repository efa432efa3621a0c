package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event names emitted by the ledger itself
const (
	EventTransfer = "Transfer"
	EventApproval = "Approval"
)

// Event is a contract-style log entry. Address is the emitting contract
// (the token for Transfer/Approval, the adapter for its own events).
type Event struct {
	Seq     uint64            `json:"seq"`
	Address common.Address    `json:"address"`
	Name    string            `json:"name"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func transferEvent(token, from, to common.Address, v *uint256.Int) Event {
	return Event{
		Address: token,
		Name:    EventTransfer,
		Fields: map[string]string{
			"from":  from.Hex(),
			"to":    to.Hex(),
			"value": v.Dec(),
		},
	}
}

func approvalEvent(token, owner, spender common.Address, v *uint256.Int) Event {
	return Event{
		Address: token,
		Name:    EventApproval,
		Fields: map[string]string{
			"owner":   owner.Hex(),
			"spender": spender.Hex(),
			"value":   v.Dec(),
		},
	}
}
