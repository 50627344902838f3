package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/guild-dashboard/internal/allowance"
	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/matrixise/guild-dashboard/internal/storage"
	"github.com/matrixise/guild-dashboard/internal/units"
)

const defaultHistoryLimit = 100

type dashboardResponse struct {
	dashboard.Summary
	Symbol    string    `json:"symbol"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	state := h.cfg.Dashboard.Current()
	writeJSON(w, http.StatusOK, dashboardResponse{
		Summary:   dashboard.Summarize(state, h.cfg.Decimals, h.cfg.Locale),
		Symbol:    h.cfg.Symbol,
		UpdatedAt: h.cfg.Dashboard.UpdatedAt().UTC(),
	})
}

type historyPoint struct {
	RecordedAt     time.Time `json:"recorded_at"`
	GuildBankValue string    `json:"guild_bank_value"`
	TotalEther     string    `json:"total_ether"`
	ShareValue     string    `json:"share_value"`
	ExchangeRate   string    `json:"exchange_rate"`
	TotalShares    uint64    `json:"total_shares"`
	Members        *int      `json:"members"`
	Proposals      *int      `json:"proposals"`
}

func (h *Handler) historyPoint(s storage.TreasurySnapshot) historyPoint {
	ether, err := units.ToHumanAmount(s.GuildBankValue, h.cfg.Decimals)
	if err != nil {
		ether = "0"
	}
	return historyPoint{
		RecordedAt:     s.RecordedAt.UTC(),
		GuildBankValue: units.ToFiat(s.GuildBankValue, h.cfg.Decimals, s.ExchangeRate, h.cfg.Locale),
		TotalEther:     ether,
		ShareValue:     units.ToFiat(s.ShareValue, h.cfg.Decimals, s.ExchangeRate, h.cfg.Locale),
		ExchangeRate:   s.ExchangeRate.String(),
		TotalShares:    s.TotalShares,
		Members:        s.Members,
		Proposals:      s.Proposals,
	}
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	if h.cfg.History == nil {
		writeError(w, http.StatusNotFound, "HISTORY_DISABLED", "treasury history requires DATABASE_URL")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > storage.MaxHistory {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"limit must be between 1 and "+strconv.Itoa(storage.MaxHistory))
			return
		}
		limit = n
	}

	snaps, err := h.cfg.History.RecentSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read treasury history", "error", err)
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "treasury history unavailable")
		return
	}

	points := make([]historyPoint, 0, len(snaps))
	for _, s := range snaps {
		points = append(points, h.historyPoint(s))
	}
	writeJSON(w, http.StatusOK, points)
}

type allowanceResponse struct {
	Input      string           `json:"input"`
	Amount     string           `json:"amount,omitempty"`
	Status     allowance.Status `json:"status"`
	Validation string           `json:"validation,omitempty"`
	TxHash     string           `json:"tx_hash,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func toAllowanceResponse(req allowance.Request) allowanceResponse {
	resp := allowanceResponse{
		Input:      req.RawInput,
		Status:     req.Status,
		Validation: req.Validation,
		Error:      req.Err,
	}
	if req.ParsedAmount != nil {
		resp.Amount = req.ParsedAmount.String()
	}
	if req.TxHash != (common.Hash{}) {
		resp.TxHash = req.TxHash.Hex()
	}
	return resp
}

func (h *Handler) getAllowance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toAllowanceResponse(h.cfg.Allowance.Request()))
}

type allowanceInput struct {
	Amount string `json:"amount"`
}

func (h *Handler) putAllowanceInput(w http.ResponseWriter, r *http.Request) {
	var in allowanceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be {\"amount\": \"...\"}")
		return
	}
	writeJSON(w, http.StatusOK, toAllowanceResponse(h.cfg.Allowance.SetInput(in.Amount)))
}

// submitAllowance keeps waiting for the receipt when the client disconnects.
func (h *Handler) submitAllowance(w http.ResponseWriter, r *http.Request) {
	req, err := h.cfg.Allowance.Submit(context.WithoutCancel(r.Context()))
	if err == nil {
		status := http.StatusOK
		if req.Status == allowance.StatusPending {
			status = http.StatusAccepted
		}
		writeJSON(w, status, toAllowanceResponse(req))
		return
	}

	status, code := mapSubmitError(err)
	if errors.Is(err, units.ErrParse) || errors.Is(err, units.ErrConversionOverflow) {
		writeError(w, status, code, req.Validation)
		return
	}
	if status == http.StatusConflict {
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, status, toAllowanceResponse(req))
}

func (h *Handler) resetAllowance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toAllowanceResponse(h.cfg.Allowance.Reset()))
}
