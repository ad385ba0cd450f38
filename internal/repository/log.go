package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// appendLocked writes one record to the install log. Caller holds r.mu;
// an flock guards against other processes appending concurrently.
func (r *Repository) appendLocked(rec model.LogRecord) error {
	rec.Timestamp = time.Now().UTC()

	file, err := os.OpenFile(filepath.Join(r.dir, LogFileName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open install log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("flock install log: %w", err)
	}
	defer unlockFile(file)

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal log record: %w", err)
	}

	if _, err := file.Seek(0, 2); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write log record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync install log: %w", err)
	}
	return nil
}

// History returns all install-log records in append order.
func (r *Repository) History() ([]model.LogRecord, error) {
	return readLog(filepath.Join(r.dir, LogFileName))
}

// readLog parses the JSONL install log. A line that does not parse is
// corruption, not noise: the log is the authority on repository contents.
func readLog(path string) ([]model.LogRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open install log: %w", err)
	}
	defer file.Close()

	var records []model.LogRecord
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec model.LogRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, errclass.ErrRepositoryInconsistent.WithMessagef(
				"%s line %d: %v", LogFileName, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan install log: %w", err)
	}
	return records, nil
}
