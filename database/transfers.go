package database

import (
	"context"
	"database/sql"

	"github.com/TEENet-io/xbridge-agents/agreement"
	logger "github.com/sirupsen/logrus"
)

// SaveTransfers upserts the transfers in one transaction. Records for the same
// transfer coming from the origin and the destination subgraph are merged.
func (c *Client) SaveTransfers(ctx context.Context, transfers []*agreement.XTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	rows := make([]*sqlTransfer, 0, len(transfers))
	for _, x := range transfers {
		s, err := (&sqlTransfer{}).encode(x)
		if err != nil {
			return err
		}
		rows = append(rows, s)
	}

	// Prepare before BeginTx: a sqlite pool has a single connection.
	stmt, err := c.prepare(ctx, upsertTransferQuery)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txStmt := tx.StmtContext(ctx, stmt)
	for _, r := range rows {
		if _, err := txStmt.ExecContext(ctx, r.args()...); err != nil {
			c.log.WithFields(logger.Fields{
				"transferId": r.TransferID,
			}).WithError(err).Error("failed to upsert transfer")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	c.log.WithField("count", len(rows)).Debug("saved transfers")
	return nil
}

// GetLatestNonce is the origin cursor: only rows holding their origin half count,
// destination-only rows may be ahead of what the origin subgraph was read up to.
func (c *Client) GetLatestNonce(ctx context.Context, domain string) (uint64, error) {
	query := `SELECT COALESCE(MAX(nonce), 0) FROM transfers WHERE origin_domain = ? AND origin_chain IS NOT NULL`
	return c.queryLatest(ctx, query, domain)
}

func (c *Client) GetLatestExecuteTimestamp(ctx context.Context, domain string) (uint64, error) {
	query := `SELECT COALESCE(MAX(execute_timestamp), 0) FROM transfers WHERE destination_domain = ?`
	return c.queryLatest(ctx, query, domain)
}

func (c *Client) GetLatestReconcileTimestamp(ctx context.Context, domain string) (uint64, error) {
	query := `SELECT COALESCE(MAX(reconcile_timestamp), 0) FROM transfers WHERE destination_domain = ?`
	return c.queryLatest(ctx, query, domain)
}

// GetTransfersByStatus pages through transfers with the given status ordered
// by xcall timestamp, then nonce.
func (c *Client) GetTransfersByStatus(
	ctx context.Context,
	status agreement.XTransferStatus,
	limit int,
	offset int,
	orderDirection agreement.OrderDirection,
) ([]*agreement.XTransfer, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if offset < 0 {
		offset = 0
	}
	dir, err := orderDirection.Normalize()
	if err != nil {
		return nil, err
	}

	// dir is one of two constants, safe to splice in.
	query := `SELECT ` + transferColumnList + ` FROM transfers WHERE status = ?
	ORDER BY COALESCE(xcall_timestamp, 0) ` + string(dir) + `, nonce ` + string(dir) + `
	LIMIT ? OFFSET ?`

	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*agreement.XTransfer
	for rows.Next() {
		var s sqlTransfer
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, err
		}
		x, err := s.decode()
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, x)
	}

	return transfers, rows.Err()
}

// GetTransfer returns the stored transfer, false if unknown.
func (c *Client) GetTransfer(ctx context.Context, transferID string) (*agreement.XTransfer, bool, error) {
	query := `SELECT ` + transferColumnList + ` FROM transfers WHERE transfer_id = ?`
	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return nil, false, err
	}

	var s sqlTransfer
	if err := stmt.QueryRowContext(ctx, transferID).Scan(s.dest()...); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	x, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return x, true, nil
}
