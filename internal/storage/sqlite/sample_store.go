package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/metrics"
)

// SampleStore persists chart samples, one row per chart, series and
// timestamp. It implements metrics.Recorder.
type SampleStore struct {
	db *DB
}

// NewSampleStore creates a SampleStore on db.
func NewSampleStore(db *DB) *SampleStore {
	return &SampleStore{db: db}
}

// RecordSample stores every reading of p. A reading already archived for
// the same chart, series and timestamp is replaced.
func (s *SampleStore) RecordSample(ctx context.Context, chartID string, p metrics.SamplePoint) error {
	if p.IsEmpty() {
		return nil
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO samples (chart_id, series, ts_ms, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, name := range p.Names() {
		if _, err := stmt.ExecContext(ctx, chartID, name, p.Timestamp, p.Values[name]); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// History returns archived points of chartID at or after since, oldest
// first, grouped by timestamp. limit caps the number of points; zero
// means no cap, in which case the most recent points are kept.
func (s *SampleStore) History(ctx context.Context, chartID string, since time.Time, limit int) ([]metrics.SamplePoint, error) {
	query := `SELECT ts_ms, series, value FROM samples
		WHERE chart_id = ? AND ts_ms >= ?
		ORDER BY ts_ms ASC, series ASC`
	rows, err := s.db.conn.QueryContext(ctx, query, chartID, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var points []metrics.SamplePoint
	for rows.Next() {
		var (
			ts     int64
			series string
			value  float64
		)
		if err := rows.Scan(&ts, &series, &value); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if n := len(points); n == 0 || points[n-1].Timestamp != ts {
			points = append(points, metrics.NewSamplePointAt(ts))
		}
		points[len(points)-1].Set(series, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points, nil
}

// ChartSummary describes the archived data of one chart.
type ChartSummary struct {
	ChartID string
	Rows    int64
	Series  int64
	First   time.Time
	Last    time.Time
}

// Charts summarizes every chart present in the archive.
func (s *SampleStore) Charts(ctx context.Context) ([]ChartSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT chart_id, COUNT(*), COUNT(DISTINCT series), MIN(ts_ms), MAX(ts_ms)
		FROM samples
		GROUP BY chart_id
		ORDER BY chart_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query charts: %w", err)
	}
	defer rows.Close()

	var out []ChartSummary
	for rows.Next() {
		var (
			c           ChartSummary
			first, last int64
		)
		if err := rows.Scan(&c.ChartID, &c.Rows, &c.Series, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan chart summary: %w", err)
		}
		c.First = time.UnixMilli(first)
		c.Last = time.UnixMilli(last)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune deletes samples older than retention and returns the row count.
func (s *SampleStore) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention).UnixMilli()
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM samples WHERE ts_ms < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	return result.RowsAffected()
}

// RunPruner prunes once immediately and then every interval until ctx is
// done.
func (s *SampleStore) RunPruner(ctx context.Context, interval, retention time.Duration) {
	prune := func() {
		n, err := s.Prune(ctx, time.Now(), retention)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("archive prune failed", "error", err)
			}
			return
		}
		if n > 0 {
			logger.Debug("archive pruned", "rows", n, "retention", retention.String())
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
