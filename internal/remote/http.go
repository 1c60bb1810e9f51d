package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/domain"
)

// HTTPLedger talks to a REST document service:
//
//	PUT {base}/transactions/{id}          body: Document
//	GET {base}/transactions?after={time}  200: {"documents": [Document...]}
type HTTPLedger struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTPLedger creates a REST ledger client. Every request is bounded by timeout.
func NewHTTPLedger(baseURL, token string, timeout time.Duration, log zerolog.Logger) *HTTPLedger {
	return &HTTPLedger{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("remote", "http").Logger(),
	}
}

type queryResponse struct {
	Documents []Document `json:"documents"`
}

// Upload implements Ledger
func (l *HTTPLedger) Upload(ctx context.Context, tx domain.Transaction) error {
	body, err := json.Marshal(NewDocument(tx))
	if err != nil {
		return uploadError(tx.ID, err)
	}

	endpoint := fmt.Sprintf("%s/transactions/%s", l.baseURL, url.PathEscape(tx.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return uploadError(tx.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.do(req)
	if err != nil {
		return uploadError(tx.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return uploadError(tx.ID, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

// QueryAfter implements Ledger
func (l *HTTPLedger) QueryAfter(ctx context.Context, after time.Time) ([]domain.Transaction, error) {
	endpoint := fmt.Sprintf("%s/transactions?after=%s", l.baseURL, url.QueryEscape(after.UTC().Format(time.RFC3339Nano)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, queryError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.do(req)
	if err != nil {
		return nil, queryError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, queryError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, queryError(fmt.Errorf("failed to decode response: %w", err))
	}

	out := make([]domain.Transaction, 0, len(payload.Documents))
	for _, doc := range payload.Documents {
		// Filter again in case the server ignores the parameter
		if doc.ID == "" || !doc.After(after) {
			continue
		}
		tx, err := doc.Transaction()
		if err != nil {
			l.log.Warn().Err(err).Str("id", doc.ID).Msg("Skipping invalid document")
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (l *HTTPLedger) do(req *http.Request) (*http.Response, error) {
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	return l.client.Do(req)
}
