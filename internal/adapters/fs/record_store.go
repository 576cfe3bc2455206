package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Weatherlly/sr-transferencias/internal/domain"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

var errNoID = errors.New("record has no usable id")

const (
	filePrefix = "transferencia_"
	fileExt    = ".json"
	tmpExt     = ".tmp"
)

// RecordStore implements ports.RecordStore with one JSON file per record.
// There is no index file; List reads the whole directory.
type RecordStore struct {
	dir    string
	logger log.Logger

	// mu serialises writers inside this process only.
	mu sync.Mutex
}

// NewRecordStore creates a RecordStore rooted at dir. The directory is
// created on first use.
func NewRecordStore(dir string, logger log.Logger) *RecordStore {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &RecordStore{dir: dir, logger: logger}
}

// Dir returns the directory holding the record files.
func (s *RecordStore) Dir() string {
	return s.dir
}

// FileName returns the file name used for a record id.
func FileName(id string) string {
	return filePrefix + id + fileExt
}

// IsRecordFile reports whether name looks like a record file rather than a
// temp file or something unrelated.
func IsRecordFile(name string) bool {
	return strings.HasSuffix(name, fileExt)
}

// Save writes rec atomically (temp file, then rename). If the id is already
// taken it is advanced one millisecond at a time until a free slot is found.
func (s *RecordStore) Save(ctx context.Context, rec domain.TransferRecord) (domain.TransferRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TransferRecord{}, err
	}

	ms, ok := domain.ParseID(rec.ID)
	if !ok {
		return domain.TransferRecord{}, fmt.Errorf("save transfer: malformed id %q", rec.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return domain.TransferRecord{}, err
	}

	path, err := s.freePath(ms, &rec)
	if err != nil {
		return domain.TransferRecord{}, err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return domain.TransferRecord{}, fmt.Errorf("encode transfer %s: %w", rec.ID, err)
	}

	tmp := path + tmpExt
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return domain.TransferRecord{}, fmt.Errorf("write transfer %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return domain.TransferRecord{}, fmt.Errorf("commit transfer %s: %w", rec.ID, err)
	}

	return rec, nil
}

// freePath finds the first unused file path at or after ms and updates rec.ID to match.
func (s *RecordStore) freePath(ms int64, rec *domain.TransferRecord) (string, error) {
	for {
		id := strconv.FormatInt(ms, 10)
		path := filepath.Join(s.dir, FileName(id))
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			rec.ID = id
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		ms++
	}
}

// List reads every *.json file in the directory. Files that cannot be read
// or decoded are logged and skipped. Records are returned newest first.
func (s *RecordStore) List(ctx context.Context) ([]domain.TransferRecord, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read transfer dir: %w", err)
	}

	records := make([]domain.TransferRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsRecordFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := s.readRecord(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable transfer file",
				log.String("file", entry.Name()),
				log.Err(err),
			)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return newer(records[i], records[j])
	})
	return records, nil
}

// Delete removes the record with the given id. The conventional file name is
// tried first; otherwise the directory is scanned for a record carrying that id.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	if _, ok := domain.ParseID(id); !ok {
		return domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, FileName(id)))
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("delete transfer %s: %w", id, err)
	}

	name, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete transfer %s: %w", id, err)
	}
	return nil
}

// findByID scans the directory for a record file whose id matches.
func (s *RecordStore) findByID(ctx context.Context, id string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("read transfer dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsRecordFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rec, err := s.readRecord(entry.Name())
		if err != nil {
			continue
		}
		if rec.ID == id {
			return entry.Name(), nil
		}
	}
	return "", domain.ErrNotFound
}

// readRecord decodes one file. Files written before ids were stored inside
// the record get their id from the file name. A record left without a
// usable id could never be deleted through the API and is rejected.
func (s *RecordStore) readRecord(name string) (domain.TransferRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return domain.TransferRecord{}, err
	}

	var rec domain.TransferRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.TransferRecord{}, err
	}

	if _, ok := domain.ParseID(rec.ID); !ok {
		rec.ID = idFromFileName(name)
	}
	if rec.ID == "" {
		return domain.TransferRecord{}, errNoID
	}
	return rec, nil
}

func (s *RecordStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create transfer dir: %w", err)
	}
	return nil
}

// idFromFileName extracts "123" from "transferencia_123.json", or returns "".
func idFromFileName(name string) string {
	base := strings.TrimSuffix(name, fileExt)
	if !strings.HasPrefix(base, filePrefix) {
		return ""
	}
	id := strings.TrimPrefix(base, filePrefix)
	if _, ok := domain.ParseID(id); !ok {
		return ""
	}
	return id
}

// newer orders records by numeric id, descending. Records without a usable
// id sort last.
func newer(a, b domain.TransferRecord) bool {
	am, aok := domain.ParseID(a.ID)
	bm, bok := domain.ParseID(b.ID)
	switch {
	case aok && bok:
		return am > bm
	case aok != bok:
		return aok
	default:
		return a.ID > b.ID
	}
}
