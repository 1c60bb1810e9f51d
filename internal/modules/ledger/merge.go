package ledger

import "github.com/aristath/ledgersync/internal/domain"

// Merge appends the remote records whose ids are absent from local.
// Inserted records are marked synced. A record already present locally is
// never replaced, and an id repeated inside remote is inserted once.
func Merge(local, remote []domain.Transaction) (merged, inserted []domain.Transaction) {
	known := make(map[string]struct{}, len(local)+len(remote))
	for _, tx := range local {
		known[tx.ID] = struct{}{}
	}

	merged = clone(local)
	for _, tx := range remote {
		if _, ok := known[tx.ID]; ok {
			continue
		}
		known[tx.ID] = struct{}{}

		tx.Synced = true
		merged = append(merged, tx)
		inserted = append(inserted, tx)
	}

	return merged, inserted
}
