package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/instruction"
)

// Handler serves the adapter over HTTP
type Handler struct {
	session *devnet.Session
	logger  *zap.Logger
}

// SwapRequest is the body of POST /swap. Calldata is 0x-prefixed hex.
type SwapRequest struct {
	Caller   string `json:"caller"`
	Calldata string `json:"calldata"`
}

// OperatorRequest is the body of POST /pause and POST /unpause
type OperatorRequest struct {
	Caller string `json:"caller"`
}

// StatusResponse describes the adapter
type StatusResponse struct {
	Adapter     common.Address `json:"adapter"`
	Operator    common.Address `json:"operator"`
	Router      common.Address `json:"router"`
	DstToken    common.Address `json:"dst_token"`
	State       string         `json:"state"`
	Paused      bool           `json:"paused"`
	Surplus     string         `json:"surplus"`
	Settlements int            `json:"settlements"`
}

// BalanceResponse is one token balance
type BalanceResponse struct {
	Token   common.Address `json:"token"`
	Account common.Address `json:"account"`
	Balance string         `json:"balance"`
}

// Status returns the adapter configuration and pause state
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	a := h.session.Adapter
	writeJSON(w, http.StatusOK, StatusResponse{
		Adapter:     a.Config().Address,
		Operator:    a.Operator(),
		Router:      a.RouterAddress(),
		DstToken:    a.Config().DstToken,
		State:       a.State().String(),
		Paused:      a.Paused(),
		Surplus:     a.Surplus().String(),
		Settlements: len(h.session.Settlements()),
	})
}

// Settlements returns the settlement history
func (h *Handler) Settlements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.session.Settlements()})
}

// Balance returns an account balance in a token given by symbol or address
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	token, err := h.session.World.ResolveToken(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	account := chi.URLParam(r, "account")
	if !common.IsHexAddress(account) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid account address: %s", account))
		return
	}
	addr := common.HexToAddress(account)
	writeJSON(w, http.StatusOK, BalanceResponse{
		Token:   token,
		Account: addr,
		Balance: h.session.Ledger.BalanceOf(token, addr).String(),
	})
}

// Swap executes calldata for the caller and returns the settlement
func (h *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseCaller(w, req.Caller)
	if !ok {
		return
	}
	calldata, err := instruction.ParseHex(req.Calldata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settlement, err := h.session.Swap(r.Context(), caller, calldata)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

// Pause stops swaps
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.operatorCall(w, r, h.session.Pause)
}

// Unpause resumes swaps
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.operatorCall(w, r, h.session.Unpause)
}

func (h *Handler) operatorCall(w http.ResponseWriter, r *http.Request, fn func(common.Address) error) {
	var req OperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseCaller(w, req.Caller)
	if !ok {
		return
	}
	if err := fn(caller); err != nil {
		h.respondError(w, err)
		return
	}
	a := h.session.Adapter
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":  a.State().String(),
		"paused": a.Paused(),
	})
}

// respondError reports a failed save separately from adapter errors. Either
// way no state was changed.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, devnet.ErrPersist) {
		h.logger.Error("change rolled back", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeSwapperError(w, err)
}

func parseCaller(w http.ResponseWriter, s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
