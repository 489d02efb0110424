package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/clarityfilter/internal/model"
)

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ID        int64
	URL       string
	Host      string
	Mode      string
	Trigger   string
	Newly     int
	Active    int
	Skipped   string
	Duration  time.Duration
	Error     string
	Timestamp time.Time
}

// InsertScan records a scan report and returns its id.
func (d *DB) InsertScan(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO scans (url, host, mode, scan_trigger, newly, active, skipped, duration_ns, error, report_json, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := d.db.ExecContext(ctx, query,
		report.URL,
		report.Host,
		string(report.Mode),
		report.Trigger,
		report.Newly,
		report.Active,
		string(report.Skipped),
		int64(report.Duration),
		report.ErrorMessage,
		string(reportJSON),
		report.DateScanned.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}
	return res.LastInsertId()
}

// RecentScans returns the newest scans first, at most limit of them. A
// non-empty host restricts the result to that host.
func (d *DB) RecentScans(ctx context.Context, host string, limit int) ([]ScanRecord, error) {
	query := `
	SELECT id, url, host, mode, scan_trigger, newly, active, skipped, duration_ns, error, timestamp
	FROM scans
	WHERE (? = '' OR host = ?)
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, host, host, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var results []ScanRecord
	for rows.Next() {
		var (
			r          ScanRecord
			durationNS int64
			timestamp  string
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.Host, &r.Mode, &r.Trigger, &r.Newly, &r.Active,
			&r.Skipped, &durationNS, &r.Error, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Duration = time.Duration(durationNS)
		r.Timestamp = parseTimestamp(timestamp)
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetScanReport returns the full report stored with a scan.
func (d *DB) GetScanReport(ctx context.Context, id int64) (*model.ScanReport, error) {
	var reportJSON string
	err := d.db.QueryRowContext(ctx, `SELECT report_json FROM scans WHERE id = ?`, id).Scan(&reportJSON)
	if err != nil {
		return nil, notFound(err, "scan")
	}
	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to deserialize report: %w", err)
	}
	return &report, nil
}
