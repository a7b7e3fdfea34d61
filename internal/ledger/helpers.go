package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"adtrim/internal/adwindow"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry        Entry
		statusStr    string
		windowsJSON  sql.NullString
		errorMessage sql.NullString
		requestID    sql.NullString
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Path,
		&statusStr,
		&entry.Parts,
		&entry.AdSeconds,
		&windowsJSON,
		&errorMessage,
		&requestID,
		&entry.Attempts,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	entry.Status = Status(statusStr)
	entry.ErrorMessage = errorMessage.String
	entry.RequestID = requestID.String

	if strings.TrimSpace(windowsJSON.String) != "" {
		var windows []adwindow.Window
		if err := json.Unmarshal([]byte(windowsJSON.String), &windows); err != nil {
			return nil, fmt.Errorf("decode windows for %s: %w", entry.Path, err)
		}
		entry.Windows = windows
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			entry.CompletedAt = &completed
		}
	}
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
