package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/ledgersync/internal/domain"
)

const documentSuffix = ".msgpack"

// ObjectStore is the subset of the object storage client the S3 ledger needs
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	Download(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// S3Ledger stores one msgpack encoded document per transaction in an object store
type S3Ledger struct {
	store  ObjectStore
	prefix string
	log    zerolog.Logger
}

// NewS3Ledger creates a ledger rooted at prefix (e.g. "transactions/")
func NewS3Ledger(store ObjectStore, prefix string, log zerolog.Logger) *S3Ledger {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Ledger{
		store:  store,
		prefix: prefix,
		log:    log.With().Str("remote", "s3").Logger(),
	}
}

// Upload implements Ledger. Writing the same key twice overwrites the object.
func (l *S3Ledger) Upload(ctx context.Context, tx domain.Transaction) error {
	data, err := msgpack.Marshal(NewDocument(tx))
	if err != nil {
		return uploadError(tx.ID, err)
	}

	if err := l.store.Upload(ctx, l.key(tx.ID), bytes.NewReader(data), int64(len(data))); err != nil {
		return uploadError(tx.ID, err)
	}
	return nil
}

// QueryAfter implements Ledger by scanning every document under the prefix
func (l *S3Ledger) QueryAfter(ctx context.Context, after time.Time) ([]domain.Transaction, error) {
	keys, err := l.store.ListKeys(ctx, l.prefix)
	if err != nil {
		return nil, queryError(err)
	}

	out := make([]domain.Transaction, 0)
	for _, key := range keys {
		if !strings.HasSuffix(key, documentSuffix) {
			continue
		}

		data, err := l.store.Download(ctx, key)
		if err != nil {
			return nil, queryError(err)
		}

		var doc Document
		if err := msgpack.Unmarshal(data, &doc); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("Skipping undecodable document")
			continue
		}
		if !doc.After(after) {
			continue
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(strings.TrimPrefix(key, l.prefix), documentSuffix)
		}

		tx, err := doc.Transaction()
		if err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("Skipping invalid document")
			continue
		}
		out = append(out, tx)
	}

	l.log.Debug().Int("scanned", len(keys)).Int("matched", len(out)).Msg("Queried documents")
	return out, nil
}

func (l *S3Ledger) key(id string) string {
	return fmt.Sprintf("%s%s%s", l.prefix, id, documentSuffix)
}
