// Package reliability uploads local database snapshots to object storage.
package reliability

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/clients/objectstore"
	"github.com/aristath/ledgersync/internal/events"
	"github.com/aristath/ledgersync/internal/utils"
)

const (
	backupPrefix     = "ledgersync-backup-"
	backupSuffix     = ".db.gz"
	backupTimeLayout = "2006-01-02-150405"

	// minBackupsToKeep applies regardless of the requested retention
	minBackupsToKeep = 3
)

// Snapshotter writes a consistent copy of a database to a file
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

// ObjectStore is the subset of the object storage client used for backups
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]objectstore.Object, error)
	Delete(ctx context.Context, key string) error
}

// BackupInfo describes one uploaded backup
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum,omitempty"` // Only known for backups created by this process
	AgeHours  int64     `json:"age_hours"`
}

// BackupService manages backups of the local ledger database
type BackupService struct {
	db      Snapshotter
	store   ObjectStore
	events  *events.Manager
	tempDir string
	now     func() time.Time
	log     zerolog.Logger
}

// NewBackupService creates a new backup service. Snapshots are staged in tempDir.
func NewBackupService(db Snapshotter, store ObjectStore, eventManager *events.Manager, tempDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:      db,
		store:   store,
		events:  eventManager,
		tempDir: tempDir,
		now:     time.Now,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots the database, compresses it and uploads it
func (s *BackupService) CreateAndUpload(ctx context.Context) (BackupInfo, error) {
	defer utils.OperationTimer("ledger_backup", s.log)()

	stagingDir, err := os.MkdirTemp(s.tempDir, "backup-staging-")
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "ledger.db")
	if err := s.db.Snapshot(ctx, snapshotPath); err != nil {
		return BackupInfo{}, err
	}

	timestamp := s.now().UTC()
	key := backupPrefix + timestamp.Format(backupTimeLayout) + backupSuffix
	archivePath := filepath.Join(stagingDir, key)

	checksum, err := compressFile(snapshotPath, archivePath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to compress snapshot: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	stat, err := archive.Stat()
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := s.store.Upload(ctx, key, archive, stat.Size()); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to upload backup: %w", err)
	}

	info := BackupInfo{
		Key:       key,
		Timestamp: timestamp,
		Size:      stat.Size(),
		Checksum:  checksum,
	}

	s.log.Info().
		Str("key", key).
		Int64("size", info.Size).
		Str("checksum", checksum).
		Msg("Backup uploaded")

	if s.events != nil {
		s.events.Emit(events.BackupCompleted, "reliability", map[string]interface{}{
			"key":      key,
			"size":     info.Size,
			"checksum": checksum,
		})
	}

	return info, nil
}

// ListBackups lists uploaded backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		timestamp, ok := parseBackupKey(obj.Key)
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}

		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: timestamp,
			Size:      obj.Size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateBackups deletes all but the newest keep backups and returns how many were deleted.
// At least three backups are always kept.
func (s *BackupService) RotateBackups(ctx context.Context, keep int) (int, error) {
	if keep < minBackupsToKeep {
		keep = minBackupsToKeep
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		s.log.Debug().Int("count", len(backups)).Msg("Too few backups to rotate")
		return 0, nil
	}

	deleted := 0
	for _, backup := range backups[keep:] {
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", backup.Key).Time("timestamp", backup.Timestamp).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return deleted, nil
}

// parseBackupKey extracts the timestamp from ledgersync-backup-2024-06-01-030000.db.gz
func parseBackupKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, backupPrefix) || !strings.HasSuffix(key, backupSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), backupSuffix)

	timestamp, err := time.Parse(backupTimeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

// compressFile gzips src into dest and returns the SHA-256 of the compressed bytes
func compressFile(src, dest string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hash := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(out, hash))
	if _, err := io.Copy(gz, in); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
