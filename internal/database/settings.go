package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/clarityfilter/internal/settings"
)

var _ settings.Store = (*DB)(nil)

// SaveSettings stores s as a new revision and notifies subscribers. It
// returns the new revision number.
func (d *DB) SaveSettings(ctx context.Context, s settings.Settings) (int64, error) {
	s = settings.Normalize(s)
	data, err := settings.Encode(s)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize settings: %w", err)
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT INTO settings (data, timestamp) VALUES (?, ?)`, string(data), now())
	if err != nil {
		return 0, fmt.Errorf("failed to save settings: %w", err)
	}
	revision, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read settings revision: %w", err)
	}

	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM settings WHERE revision <= ?`, revision-int64(d.keepRevisions)); err != nil {
		return 0, fmt.Errorf("failed to prune settings: %w", err)
	}

	d.publish(revision, s)
	return revision, nil
}

// LoadSettings returns the latest snapshot and its revision. Without any
// stored revision it returns the defaults and revision 0. A malformed
// snapshot decodes to the defaults.
func (d *DB) LoadSettings(ctx context.Context) (settings.Settings, int64, error) {
	var (
		revision int64
		data     string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT revision, data FROM settings ORDER BY revision DESC LIMIT 1`).Scan(&revision, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Default(), 0, nil
	}
	if err != nil {
		return settings.Default(), 0, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings.Decode([]byte(data)), revision, nil
}

// Revision returns the latest settings revision, 0 when none is stored.
func (d *DB) Revision(ctx context.Context) (int64, error) {
	var revision sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(revision) FROM settings`).Scan(&revision); err != nil {
		return 0, fmt.Errorf("failed to read settings revision: %w", err)
	}
	return revision.Int64, nil
}

// Get implements settings.Store.
func (d *DB) Get(ctx context.Context) (settings.Settings, error) {
	s, _, err := d.LoadSettings(ctx)
	return s, err
}

// OnChange implements settings.Store. fn is called on the goroutine that
// saved the snapshot or, for changes from other processes, on the
// goroutine running Watch.
func (d *DB) OnChange(fn func(settings.Settings)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// publish notifies subscribers of revision unless it was already seen.
func (d *DB) publish(revision int64, s settings.Settings) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	if revision <= d.lastSeen {
		return
	}
	d.lastSeen = revision

	d.mu.Lock()
	subs := make([]func(settings.Settings), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	for _, fn := range subs {
		fn(s.Clone())
	}
}

// Watch polls the latest revision every interval and notifies subscribers
// of revisions written by other processes. It returns when ctx ends.
func (d *DB) Watch(ctx context.Context, interval time.Duration) error {
	if revision, err := d.Revision(ctx); err == nil {
		d.notifyMu.Lock()
		d.lastSeen = max(d.lastSeen, revision)
		d.notifyMu.Unlock()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s, revision, err := d.LoadSettings(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			d.publish(revision, s)
		}
	}
}
