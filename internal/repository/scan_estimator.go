package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type partitionScanEstimator struct {
	pool *pgxpool.Pool
}

// NewScanEstimator prices query windows from the on-disk size of the
// canonical partitions they touch, so a query can be rejected without ever
// being executed.
func NewScanEstimator(pool *pgxpool.Pool) ScanEstimator {
	return &partitionScanEstimator{pool: pool}
}

func (e *partitionScanEstimator) EstimateScanBytes(ctx context.Context, from, to time.Time) (int64, error) {
	rows, err := e.pool.Query(
		ctx,
		`SELECT c.relname, pg_total_relation_size(c.oid)
		 FROM pg_inherits i
		 JOIN pg_class c ON c.oid = i.inhrelid
		 WHERE i.inhparent = 'canonical_logs'::regclass`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read partition sizes: %w", err)
	}
	defer rows.Close()

	fromDate := from.UTC().Truncate(24 * time.Hour)
	toDate := to.UTC().Truncate(24 * time.Hour)

	var total int64
	for rows.Next() {
		var (
			relname string
			size    int64
		)
		if scanErr := rows.Scan(&relname, &size); scanErr != nil {
			return 0, fmt.Errorf("failed to scan partition size: %w", scanErr)
		}
		date, ok := partitionDate(relname)
		if !ok {
			// Unrecognized children (e.g. a default partition) always count.
			total += size
			continue
		}
		if !date.Before(fromDate) && !date.After(toDate) {
			total += size
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return 0, fmt.Errorf("failed to iterate partition sizes: %w", rowsErr)
	}
	return total, nil
}

// partitionDate parses the date out of a canonical_logs_pYYYYMMDD child name.
func partitionDate(relname string) (time.Time, bool) {
	const prefix = "canonical_logs_p"
	if !strings.HasPrefix(relname, prefix) {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("20060102", relname[len(prefix):], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
