// Package handlers provides HTTP handlers for transaction operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/domain"
	"github.com/aristath/ledgersync/internal/modules/ledger"
)

const maxBodyBytes = 64 << 10

// Handler handles transaction HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new transaction handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetTransactions handles GET /api/transactions
//
// Query parameters:
//   - synced: "true" or "false" filters by sync state
//   - type: "income" or "expense"
//   - limit: maximum number of (most recent) transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.Transactions(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load transactions")
		http.Error(w, "Failed to load transactions", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	filtered := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if s := q.Get("synced"); s != "" {
			want, err := strconv.ParseBool(s)
			if err != nil {
				http.Error(w, "Invalid synced filter", http.StatusBadRequest)
				return
			}
			if tx.Synced != want {
				continue
			}
		}
		if t := q.Get("type"); t != "" && string(tx.Type) != t {
			continue
		}
		filtered = append(filtered, tx)
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < len(filtered) {
			filtered = filtered[len(filtered)-limit:]
		}
	}

	unsynced := 0
	for _, tx := range filtered {
		if !tx.Synced {
			unsynced++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": filtered,
			"count":        len(filtered),
			"unsynced":     unsynced,
		},
		"metadata": metadata(),
	})
}

// HandleGetTransaction handles GET /api/transactions/{id}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.service.Transaction(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to load transaction")
		http.Error(w, "Failed to load transaction", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     tx,
		"metadata": metadata(),
	})
}

// HandleCreateTransaction handles POST /api/transactions.
// The transaction is persisted locally and its upload starts in the background,
// so the response never waits on the remote ledger.
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.NewTransactionInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.service.AddTransaction(r.Context(), in)
	switch {
	case errors.Is(err, domain.ErrInvalidTransaction):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Failed to save transaction", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data":     tx,
		"metadata": metadata(),
	})
}

// HandleGetSummary handles GET /api/transactions/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize transactions")
		http.Error(w, "Failed to summarize transactions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     summary,
		"metadata": metadata(),
	})
}

// HandleGetCategories handles GET /api/categories
func (h *Handler) HandleGetCategories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"categories": domain.SuggestedCategories,
			"types":      []domain.TransactionType{domain.TransactionTypeExpense, domain.TransactionTypeIncome},
		},
		"metadata": metadata(),
	})
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
