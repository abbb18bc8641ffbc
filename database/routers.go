package database

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/TEENet-io/xbridge-agents/agreement"
)

// SaveRouterBalances registers each router and upserts its per (asset, domain) balance.
func (c *Client) SaveRouterBalances(ctx context.Context, balances []*agreement.RouterBalance) error {
	if len(balances) == 0 {
		return nil
	}

	for _, rb := range balances {
		if rb.Router == "" {
			return ErrRouterBalanceInvalid(rb.Router)
		}
		for _, a := range rb.Assets {
			if a.CanonicalID == "" || a.Domain == "" {
				return ErrRouterBalanceInvalid(rb.Router)
			}
		}
	}

	routerStmt, err := c.prepare(ctx, `INSERT INTO routers (address) VALUES (?) ON CONFLICT (address) DO NOTHING`)
	if err != nil {
		return err
	}
	balanceStmt, err := c.prepare(ctx, `INSERT INTO asset_balances
	(router_address, canonical_id, domain, local_asset, adopted_asset, balance) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (router_address, canonical_id, domain) DO UPDATE SET
	local_asset = excluded.local_asset, adopted_asset = excluded.adopted_asset, balance = excluded.balance`)
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

	txRouterStmt := tx.StmtContext(ctx, routerStmt)
	txBalanceStmt := tx.StmtContext(ctx, balanceStmt)
	for _, rb := range balances {
		if _, err := txRouterStmt.ExecContext(ctx, rb.Router); err != nil {
			return err
		}
		for _, a := range rb.Assets {
			balance := a.Balance
			if balance == nil {
				balance = new(big.Int)
			}
			if _, err := txBalanceStmt.ExecContext(ctx,
				rb.Router,
				a.CanonicalID,
				a.Domain,
				nullString(a.LocalAsset),
				nullString(a.AdoptedAsset),
				balance.String(),
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetRouterBalance returns the stored balances of a router, false if the router is unknown.
func (c *Client) GetRouterBalance(ctx context.Context, router string) (*agreement.RouterBalance, bool, error) {
	stmt, err := c.prepare(ctx, `SELECT r.address, b.canonical_id, b.domain, b.local_asset, b.adopted_asset, b.balance
	FROM routers r LEFT JOIN asset_balances b ON b.router_address = r.address
	WHERE r.address = ? ORDER BY b.domain, b.canonical_id`)
	if err != nil {
		return nil, false, err
	}

	rows, err := stmt.QueryContext(ctx, router)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var rb *agreement.RouterBalance
	for rows.Next() {
		var (
			address                                      string
			canonicalID, domain, local, adopted, balance sql.NullString
		)
		if err := rows.Scan(&address, &canonicalID, &domain, &local, &adopted, &balance); err != nil {
			return nil, false, err
		}
		if rb == nil {
			rb = &agreement.RouterBalance{Router: address}
		}
		if !canonicalID.Valid {
			continue
		}
		amount, err := decodeBig(balance)
		if err != nil {
			return nil, false, err
		}
		rb.Assets = append(rb.Assets, agreement.AssetBalance{
			CanonicalID:  canonicalID.String,
			Domain:       domain.String,
			LocalAsset:   local.String,
			AdoptedAsset: adopted.String,
			Balance:      amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	return rb, rb != nil, nil
}
