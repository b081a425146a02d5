package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"swapcore/internal/curve"
	"swapcore/internal/engine"
	"swapcore/internal/model"
	"swapcore/internal/pool"
	"swapcore/internal/store"
	"swapcore/internal/token"
)

// Server exposes the swap core over HTTP: pool lookup, pure quoting, and
// swap execution against the token book.
type Server struct {
	logger *zap.Logger
	engine *engine.Engine
	pools  *pool.Registry
	book   *token.Book
	sink   store.SwapSink

	// swapMu imposes the sequential-application guarantee the core itself
	// does not provide: one swap mutates pool state at a time.
	swapMu sync.Mutex
}

// NewServer builds a Server. sink may be nil to disable journaling.
func NewServer(logger *zap.Logger, eng *engine.Engine, pools *pool.Registry, book *token.Book, sink store.SwapSink) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger: logger,
		engine: eng,
		pools:  pools,
		book:   book,
		sink:   sink,
	}
}

// Router wires the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/v1/pools/{address}", s.handlePool).Methods(http.MethodGet)
	router.HandleFunc("/v1/quote", s.handleQuote).Methods(http.MethodPost)
	router.HandleFunc("/v1/swap", s.handleSwap).Methods(http.MethodPost)
	return router
}

type swapRequest struct {
	Pool             string `json:"pool"`
	Payer            string `json:"payer,omitempty"`
	InputMint        string `json:"input_mint"`
	AmountIn         string `json:"amount_in"`
	MinimumAmountOut string `json:"minimum_amount_out"`
}

type outcomeResponse struct {
	Pool                  string `json:"pool"`
	Direction             string `json:"direction"`
	AmountIn              string `json:"amount_in"`
	ActualAmountIn        string `json:"actual_amount_in"`
	InputTransferAmount   string `json:"input_transfer_amount"`
	OutputTransferAmount  string `json:"output_transfer_amount"`
	AmountReceived        string `json:"amount_received"`
	ProtocolFee           string `json:"protocol_fee"`
	FundFee               string `json:"fund_fee"`
	NewSourceReserve      string `json:"new_source_reserve"`
	NewDestinationReserve string `json:"new_destination_reserve"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid pool address")
		return
	}
	state, ok := s.pools.Get(common.HexToAddress(raw))
	if !ok {
		writeError(w, http.StatusNotFound, "pool not found")
		return
	}
	writeJSON(w, http.StatusOK, store.SnapshotPool(state))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	_, poolState, engineReq, ok := s.decodeSwapRequest(w, r, false)
	if !ok {
		return
	}

	outcome, err := s.engine.Quote(r.Context(), engineReq)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildOutcomeResponse(poolState, outcome))
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	req, poolState, engineReq, ok := s.decodeSwapRequest(w, r, true)
	if !ok {
		return
	}

	s.swapMu.Lock()
	outcome, err := s.engine.Swap(r.Context(), engineReq)
	s.swapMu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if s.sink != nil {
		record := buildSwapRecord(req, poolState, outcome)
		if err := s.sink.PutSwaps([]model.SwapRecord{record}); err != nil {
			s.logger.Error("journal swap", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, buildOutcomeResponse(poolState, outcome))
}

// decodeSwapRequest parses and resolves a quote/swap body into an engine
// request. withPayer additionally resolves the payer's token accounts.
func (s *Server) decodeSwapRequest(w http.ResponseWriter, r *http.Request, withPayer bool) (swapRequest, *pool.State, engine.Request, bool) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, nil, engine.Request{}, false
	}
	if !common.IsHexAddress(req.Pool) {
		writeError(w, http.StatusBadRequest, "invalid pool address")
		return req, nil, engine.Request{}, false
	}
	if !common.IsHexAddress(req.InputMint) {
		writeError(w, http.StatusBadRequest, "invalid input mint")
		return req, nil, engine.Request{}, false
	}

	poolState, ok := s.pools.Get(common.HexToAddress(req.Pool))
	if !ok {
		writeError(w, http.StatusNotFound, "pool not found")
		return req, nil, engine.Request{}, false
	}

	amountIn, err := model.ParseAmount(req.AmountIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount_in")
		return req, nil, engine.Request{}, false
	}
	minimumOut, err := model.ParseAmount(req.MinimumAmountOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid minimum_amount_out")
		return req, nil, engine.Request{}, false
	}

	engineReq, err := engine.RequestFromMint(poolState, common.HexToAddress(req.InputMint), amountIn, minimumOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "input mint does not belong to pool")
		return req, nil, engine.Request{}, false
	}

	if withPayer {
		if !common.IsHexAddress(req.Payer) {
			writeError(w, http.StatusBadRequest, "invalid payer address")
			return req, nil, engine.Request{}, false
		}
		payer := common.HexToAddress(req.Payer)
		source, ok := s.book.AccountFor(payer, engineReq.InputMint)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "payer has no account for input mint")
			return req, nil, engine.Request{}, false
		}
		destination, ok := s.book.AccountFor(payer, engineReq.OutputMint)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "payer has no account for output mint")
			return req, nil, engine.Request{}, false
		}
		engineReq.Payer = payer
		engineReq.UserSource = source
		engineReq.UserDestination = destination
	}

	return req, poolState, engineReq, true
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotApproved):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrExceededSlippage),
		errors.Is(err, engine.ErrVaultMismatch),
		errors.Is(err, engine.ErrMintMismatch),
		errors.Is(err, curve.ErrZeroTradingTokens),
		errors.Is(err, token.ErrInsufficientFunds),
		errors.Is(err, token.ErrAccountFrozen),
		errors.Is(err, token.ErrFeeCalculationOverflow):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("swap request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func buildOutcomeResponse(poolState *pool.State, outcome engine.Outcome) outcomeResponse {
	return outcomeResponse{
		Pool:                  poolState.Address.Hex(),
		Direction:             outcome.Direction.String(),
		AmountIn:              model.FormatAmount(outcome.AmountIn),
		ActualAmountIn:        model.FormatAmount(outcome.ActualAmountIn),
		InputTransferAmount:   model.FormatAmount(outcome.InputTransferAmount),
		OutputTransferAmount:  model.FormatAmount(outcome.OutputTransferAmount),
		AmountReceived:        model.FormatAmount(outcome.AmountReceived),
		ProtocolFee:           model.FormatAmount(outcome.ProtocolFee),
		FundFee:               model.FormatAmount(outcome.FundFee),
		NewSourceReserve:      model.FormatAmount(outcome.NewSourceReserve),
		NewDestinationReserve: model.FormatAmount(outcome.NewDestinationReserve),
	}
}

func buildSwapRecord(req swapRequest, poolState *pool.State, outcome engine.Outcome) model.SwapRecord {
	return model.SwapRecord{
		Pool:                  poolState.Address.Hex(),
		Payer:                 common.HexToAddress(req.Payer).Hex(),
		Direction:             outcome.Direction.String(),
		AmountIn:              model.FormatAmount(outcome.AmountIn),
		ActualAmountIn:        model.FormatAmount(outcome.ActualAmountIn),
		InputTransferAmount:   model.FormatAmount(outcome.InputTransferAmount),
		OutputTransferAmount:  model.FormatAmount(outcome.OutputTransferAmount),
		AmountReceived:        model.FormatAmount(outcome.AmountReceived),
		ProtocolFee:           model.FormatAmount(outcome.ProtocolFee),
		FundFee:               model.FormatAmount(outcome.FundFee),
		NewSourceReserve:      model.FormatAmount(outcome.NewSourceReserve),
		NewDestinationReserve: model.FormatAmount(outcome.NewDestinationReserve),
		ExecutedAt:            time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
