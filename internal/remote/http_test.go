package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/ledgersync/internal/domain"
)

// documentServer is a minimal REST document service
type documentServer struct {
	mu       sync.Mutex
	docs     map[string]Document
	authSeen []string
	fail     bool
}

func (s *documentServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authSeen = append(s.authSeen, r.Header.Get("Authorization"))
	if s.fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.Method == http.MethodPut && len(r.URL.Path) > len("/transactions/"):
		var doc Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.docs[r.URL.Path[len("/transactions/"):]] = doc
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && r.URL.Path == "/transactions":
		after, err := time.Parse(time.RFC3339Nano, r.URL.Query().Get("after"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		out := queryResponse{Documents: []Document{}}
		for _, doc := range s.docs {
			if doc.Timestamp.After(after) {
				out.Documents = append(out.Documents, doc)
			}
		}
		_ = json.NewEncoder(w).Encode(out)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestHTTPLedger_UploadAndQuery(t *testing.T) {
	srv := &documentServer{docs: make(map[string]Document)}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	l := NewHTTPLedger(ts.URL+"/", "secret", 5*time.Second, zerolog.Nop())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Upload(ctx, tx("a", base)))
	require.NoError(t, l.Upload(ctx, tx("a", base)))
	require.NoError(t, l.Upload(ctx, tx("b", base.Add(time.Hour))))
	assert.Len(t, srv.docs, 2)

	got, err := l.QueryAfter(ctx, base)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Synced)

	for _, auth := range srv.authSeen {
		assert.Equal(t, "Bearer secret", auth)
	}
}

func TestHTTPLedger_ServerErrors(t *testing.T) {
	srv := &documentServer{docs: make(map[string]Document), fail: true}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	l := NewHTTPLedger(ts.URL, "", 5*time.Second, zerolog.Nop())
	ctx := context.Background()

	assert.ErrorIs(t, l.Upload(ctx, tx("a", time.Now())), domain.ErrUploadFailed)

	_, err := l.QueryAfter(ctx, time.Now())
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}

func TestHTTPLedger_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	l := NewHTTPLedger(ts.URL, "", 50*time.Millisecond, zerolog.Nop())
	err := l.Upload(context.Background(), tx("a", time.Now()))
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}
