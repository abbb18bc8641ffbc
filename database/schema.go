package database

import "strings"

var (
	// One row per transfer. The origin half (origin_* and xcall_*) and the destination
	// half (destination_*, execute_*, reconcile_*) are filled by different subgraphs and
	// merged on transfer_id.
	transfersTable = `CREATE TABLE IF NOT EXISTS transfers (
		transfer_id TEXT PRIMARY KEY NOT NULL,
		nonce BIGINT NOT NULL,
		origin_domain TEXT NOT NULL,
		destination_domain TEXT NOT NULL,
		to_address TEXT,
		call_data TEXT,
		status TEXT NOT NULL,
		origin_chain BIGINT,
		origin_originator TEXT,
		origin_transacting_asset TEXT,
		origin_local_asset TEXT,
		origin_amount TEXT,
		xcall_tx_hash TEXT,
		xcall_caller TEXT,
		xcall_timestamp BIGINT,
		xcall_block_number BIGINT,
		xcall_gas_price TEXT,
		xcall_gas_limit TEXT,
		destination_chain BIGINT,
		routers TEXT,
		destination_local_asset TEXT,
		destination_amount TEXT,
		execute_tx_hash TEXT,
		execute_caller TEXT,
		execute_timestamp BIGINT,
		execute_block_number BIGINT,
		execute_gas_price TEXT,
		execute_gas_limit TEXT,
		reconcile_tx_hash TEXT,
		reconcile_caller TEXT,
		reconcile_timestamp BIGINT,
		reconcile_block_number BIGINT,
		reconcile_gas_price TEXT,
		reconcile_gas_limit TEXT,
		CONSTRAINT chk_status CHECK (status IN ('XCalled', 'Executed', 'Reconciled', 'CompletedFast', 'CompletedSlow'))
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_origin_nonce ON transfers (origin_domain, nonce);
	CREATE INDEX IF NOT EXISTS idx_transfers_destination ON transfers (destination_domain);
	CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers (status);
	`

	routersTable = `CREATE TABLE IF NOT EXISTS routers (
		address TEXT PRIMARY KEY NOT NULL
	);
	`

	assetBalancesTable = `CREATE TABLE IF NOT EXISTS asset_balances (
		router_address TEXT NOT NULL REFERENCES routers (address),
		canonical_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		local_asset TEXT,
		adopted_asset TEXT,
		balance TEXT NOT NULL,
		PRIMARY KEY (router_address, canonical_id, domain)
	);
	`

	// Column order shared by the upsert and every SELECT of transfers.
	transferColumns = []string{
		"transfer_id",
		"nonce",
		"origin_domain",
		"destination_domain",
		"to_address",
		"call_data",
		"status",
		"origin_chain",
		"origin_originator",
		"origin_transacting_asset",
		"origin_local_asset",
		"origin_amount",
		"xcall_tx_hash",
		"xcall_caller",
		"xcall_timestamp",
		"xcall_block_number",
		"xcall_gas_price",
		"xcall_gas_limit",
		"destination_chain",
		"routers",
		"destination_local_asset",
		"destination_amount",
		"execute_tx_hash",
		"execute_caller",
		"execute_timestamp",
		"execute_block_number",
		"execute_gas_price",
		"execute_gas_limit",
		"reconcile_tx_hash",
		"reconcile_caller",
		"reconcile_timestamp",
		"reconcile_block_number",
		"reconcile_gas_price",
		"reconcile_gas_limit",
	}

	transferColumnList = strings.Join(transferColumns, ", ")

	upsertTransferQuery = buildUpsertTransferQuery()
)

// statusRank orders statuses by progress: xcalled, then executed or reconciled,
// then completed.
func statusRank(col string) string {
	return `CASE ` + col + ` WHEN 'XCalled' THEN 0 WHEN 'Executed' THEN 1 WHEN 'Reconciled' THEN 1 ELSE 2 END`
}

// A later partial record never blanks out what an earlier one stored, and the status
// never moves backwards.
func buildUpsertTransferQuery() string {
	sets := make([]string, 0, len(transferColumns)-1)
	for _, col := range transferColumns[1:] {
		switch col {
		case "status":
			sets = append(sets, "status = CASE WHEN "+statusRank("excluded.status")+" >= "+statusRank("transfers.status")+
				" THEN excluded.status ELSE transfers.status END")
		default:
			sets = append(sets, col+" = COALESCE(excluded."+col+", transfers."+col+")")
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(transferColumns)), ", ")
	return `INSERT INTO transfers (` + transferColumnList + `) VALUES (` + placeholders + `)
	ON CONFLICT (transfer_id) DO UPDATE SET ` + strings.Join(sets, ", ")
}
