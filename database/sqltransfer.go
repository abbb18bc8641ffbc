package database

import (
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	"github.com/TEENet-io/xbridge-agents/agreement"
)

// sqlTransfer mirrors a transfers row. Optional halves of a transfer are
// encoded as NULLs so the upsert can merge them.
type sqlTransfer struct {
	TransferID        string
	Nonce             int64
	OriginDomain      string
	DestinationDomain string
	To                sql.NullString
	CallData          sql.NullString
	Status            string

	OriginChain            sql.NullInt64
	OriginOriginator       sql.NullString
	OriginTransactingAsset sql.NullString
	OriginLocalAsset       sql.NullString
	OriginAmount           sql.NullString
	XCall                  sqlTxMeta

	DestinationChain      sql.NullInt64
	Routers               sql.NullString
	DestinationLocalAsset sql.NullString
	DestinationAmount     sql.NullString
	Execute               sqlTxMeta
	Reconcile             sqlTxMeta
}

type sqlTxMeta struct {
	TxHash      sql.NullString
	Caller      sql.NullString
	Timestamp   sql.NullInt64
	BlockNumber sql.NullInt64
	GasPrice    sql.NullString
	GasLimit    sql.NullString
}

// encode converts an XTransfer into column values. Only the identifying
// fields are mandatory; it is the subgraph's job to report them.
func (s *sqlTransfer) encode(x *agreement.XTransfer) (*sqlTransfer, error) {
	if x.TransferID == "" || x.OriginDomain == "" || x.DestinationDomain == "" {
		return nil, ErrTransferInvalid(x.TransferID)
	}

	s.TransferID = x.TransferID
	s.Nonce = int64(x.Nonce)
	s.OriginDomain = x.OriginDomain
	s.DestinationDomain = x.DestinationDomain
	s.To = nullString(x.To)
	s.CallData = nullString(x.CallData)
	s.Status = string(x.Status())

	if o := x.Origin; o != nil {
		s.OriginChain = sql.NullInt64{Int64: int64(o.Chain), Valid: true}
		s.OriginOriginator = nullString(o.Originator)
		s.OriginTransactingAsset = nullString(o.TransactingAsset)
		s.OriginLocalAsset = nullString(o.LocalAsset)
		s.OriginAmount = nullBig(o.Amount)
		s.XCall.encode(o.XCall)
	}

	if d := x.Destination; d != nil {
		s.DestinationChain = sql.NullInt64{Int64: int64(d.Chain), Valid: true}
		s.Routers = nullString(strings.Join(d.Routers, ","))
		s.DestinationLocalAsset = nullString(d.LocalAsset)
		s.DestinationAmount = nullBig(d.Amount)
		s.Execute.encode(d.Execute)
		s.Reconcile.encode(d.Reconcile)
	}

	return s, nil
}

// args follows transferColumns.
func (s *sqlTransfer) args() []interface{} {
	return []interface{}{
		s.TransferID,
		s.Nonce,
		s.OriginDomain,
		s.DestinationDomain,
		s.To,
		s.CallData,
		s.Status,
		s.OriginChain,
		s.OriginOriginator,
		s.OriginTransactingAsset,
		s.OriginLocalAsset,
		s.OriginAmount,
		s.XCall.TxHash,
		s.XCall.Caller,
		s.XCall.Timestamp,
		s.XCall.BlockNumber,
		s.XCall.GasPrice,
		s.XCall.GasLimit,
		s.DestinationChain,
		s.Routers,
		s.DestinationLocalAsset,
		s.DestinationAmount,
		s.Execute.TxHash,
		s.Execute.Caller,
		s.Execute.Timestamp,
		s.Execute.BlockNumber,
		s.Execute.GasPrice,
		s.Execute.GasLimit,
		s.Reconcile.TxHash,
		s.Reconcile.Caller,
		s.Reconcile.Timestamp,
		s.Reconcile.BlockNumber,
		s.Reconcile.GasPrice,
		s.Reconcile.GasLimit,
	}
}

// dest follows transferColumns.
func (s *sqlTransfer) dest() []interface{} {
	return []interface{}{
		&s.TransferID,
		&s.Nonce,
		&s.OriginDomain,
		&s.DestinationDomain,
		&s.To,
		&s.CallData,
		&s.Status,
		&s.OriginChain,
		&s.OriginOriginator,
		&s.OriginTransactingAsset,
		&s.OriginLocalAsset,
		&s.OriginAmount,
		&s.XCall.TxHash,
		&s.XCall.Caller,
		&s.XCall.Timestamp,
		&s.XCall.BlockNumber,
		&s.XCall.GasPrice,
		&s.XCall.GasLimit,
		&s.DestinationChain,
		&s.Routers,
		&s.DestinationLocalAsset,
		&s.DestinationAmount,
		&s.Execute.TxHash,
		&s.Execute.Caller,
		&s.Execute.Timestamp,
		&s.Execute.BlockNumber,
		&s.Execute.GasPrice,
		&s.Execute.GasLimit,
		&s.Reconcile.TxHash,
		&s.Reconcile.Caller,
		&s.Reconcile.Timestamp,
		&s.Reconcile.BlockNumber,
		&s.Reconcile.GasPrice,
		&s.Reconcile.GasLimit,
	}
}

func (s *sqlTransfer) decode() (*agreement.XTransfer, error) {
	status, err := agreement.ParseXTransferStatus(s.Status)
	if err != nil {
		return nil, err
	}

	x := &agreement.XTransfer{
		TransferID:        s.TransferID,
		Nonce:             uint64(s.Nonce),
		OriginDomain:      s.OriginDomain,
		DestinationDomain: s.DestinationDomain,
		To:                s.To.String,
		CallData:          s.CallData.String,
	}

	if s.OriginChain.Valid {
		amount, err := decodeBig(s.OriginAmount)
		if err != nil {
			return nil, err
		}
		x.Origin = &agreement.XTransferOrigin{
			Chain:            uint64(s.OriginChain.Int64),
			Originator:       s.OriginOriginator.String,
			TransactingAsset: s.OriginTransactingAsset.String,
			LocalAsset:       s.OriginLocalAsset.String,
			Amount:           amount,
		}
		if x.Origin.XCall, err = s.XCall.decode(); err != nil {
			return nil, err
		}
	}

	if s.DestinationChain.Valid {
		amount, err := decodeBig(s.DestinationAmount)
		if err != nil {
			return nil, err
		}
		var routers []string
		if s.Routers.Valid && s.Routers.String != "" {
			routers = strings.Split(s.Routers.String, ",")
		}
		x.Destination = &agreement.XTransferDestination{
			Chain:      uint64(s.DestinationChain.Int64),
			Status:     status,
			Routers:    routers,
			LocalAsset: s.DestinationLocalAsset.String,
			Amount:     amount,
		}
		if x.Destination.Execute, err = s.Execute.decode(); err != nil {
			return nil, err
		}
		if x.Destination.Reconcile, err = s.Reconcile.decode(); err != nil {
			return nil, err
		}
	}

	return x, nil
}

func (m *sqlTxMeta) encode(meta *agreement.TxMeta) {
	if meta == nil {
		return
	}
	m.TxHash = nullString(meta.TxHash)
	m.Caller = nullString(meta.Caller)
	m.Timestamp = sql.NullInt64{Int64: int64(meta.Timestamp), Valid: true}
	m.BlockNumber = sql.NullInt64{Int64: int64(meta.BlockNumber), Valid: true}
	m.GasPrice = nullBig(meta.GasPrice)
	m.GasLimit = nullBig(meta.GasLimit)
}

func (m *sqlTxMeta) decode() (*agreement.TxMeta, error) {
	if !m.TxHash.Valid && !m.Timestamp.Valid {
		return nil, nil
	}
	gasPrice, err := decodeBig(m.GasPrice)
	if err != nil {
		return nil, err
	}
	gasLimit, err := decodeBig(m.GasLimit)
	if err != nil {
		return nil, err
	}
	return &agreement.TxMeta{
		TxHash:      m.TxHash.String,
		Caller:      m.Caller.String,
		Timestamp:   uint64(m.Timestamp.Int64),
		BlockNumber: uint64(m.BlockNumber.Int64),
		GasPrice:    gasPrice,
		GasLimit:    gasLimit,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Amounts are stored as decimal text: they do not fit BIGINT.
func nullBig(b *big.Int) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: b.String(), Valid: true}
}

func decodeBig(s sql.NullString) (*big.Int, error) {
	if !s.Valid {
		return nil, nil
	}
	b, ok := new(big.Int).SetString(s.String, 10)
	if !ok {
		return nil, fmt.Errorf("stored amount is not a decimal integer: %q", s.String)
	}
	return b, nil
}
