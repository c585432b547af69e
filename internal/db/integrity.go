package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrCorrupt means the store failed its integrity check. The corrupted file
// has already been copied aside; recovery is a manual operation.
var ErrCorrupt = errors.New("db: store corrupt, manual recovery required")

// EnsureIntegrity runs PRAGMA integrity_check against the store before it is
// opened for real work. A missing file is fine (fresh store). On corruption
// the file is copied aside with a timestamp suffix and ErrCorrupt is
// returned; the store is never rebuilt or repaired automatically.
func EnsureIntegrity(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("db: open for integrity check: %w", err)
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		// A file sqlite refuses to read at all is corruption too.
		if isCorruptionErr(err) {
			result = err.Error()
		} else {
			return fmt.Errorf("db: integrity check: %w", err)
		}
	}
	if result == "ok" {
		return nil
	}

	backup, err := copyAside(path)
	if err != nil {
		return fmt.Errorf("%w: integrity=%q, backup failed: %v", ErrCorrupt, result, err)
	}
	return fmt.Errorf("%w: integrity=%q, backup=%s", ErrCorrupt, result, backup)
}

func isCorruptionErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") ||
		strings.Contains(msg, "not a database") ||
		strings.Contains(msg, "corrupt")
}

func copyAside(path string) (string, error) {
	backup := fmt.Sprintf("%s.corrupt.%s", path, time.Now().Format("20060102_150405"))

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return backup, nil
}
