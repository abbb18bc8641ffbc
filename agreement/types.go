// Global agreement on the types exchanged between the agents and their adapters.

package agreement

import (
	"fmt"
	"math/big"
	"time"
)

// XTransferStatus is the life cycle stage of a cross-domain transfer.
type XTransferStatus string

const (
	XTransferStatusXCalled       XTransferStatus = "XCalled"
	XTransferStatusExecuted      XTransferStatus = "Executed"
	XTransferStatusReconciled    XTransferStatus = "Reconciled"
	XTransferStatusCompletedFast XTransferStatus = "CompletedFast"
	XTransferStatusCompletedSlow XTransferStatus = "CompletedSlow"
)

var xTransferStatuses = []XTransferStatus{
	XTransferStatusXCalled,
	XTransferStatusExecuted,
	XTransferStatusReconciled,
	XTransferStatusCompletedFast,
	XTransferStatusCompletedSlow,
}

func ParseXTransferStatus(s string) (XTransferStatus, error) {
	for _, status := range xTransferStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown xtransfer status: %q", s)
}

// OrderDirection of paged queries. Empty means ascending.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "ASC"
	OrderDesc OrderDirection = "DESC"
)

func (d OrderDirection) Normalize() (OrderDirection, error) {
	switch d {
	case "", OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("invalid order direction: %q", string(d))
	}
}

// TxMeta describes the on-chain transaction behind one step of a transfer.
type TxMeta struct {
	TxHash      string
	Caller      string
	Timestamp   uint64
	BlockNumber uint64
	GasPrice    *big.Int
	GasLimit    *big.Int
}

// XTransferOrigin is the half of a transfer reported by the origin domain subgraph.
type XTransferOrigin struct {
	Chain            uint64
	Originator       string
	TransactingAsset string
	LocalAsset       string
	Amount           *big.Int
	XCall            *TxMeta
}

// XTransferDestination is the half of a transfer reported by the destination domain subgraph.
type XTransferDestination struct {
	Chain      uint64
	Status     XTransferStatus
	Routers    []string
	LocalAsset string
	Amount     *big.Int
	Execute    *TxMeta
	Reconcile  *TxMeta
}

// XTransfer is a cross-domain transfer.
// Origin and Destination may each be nil when only one side has been observed.
type XTransfer struct {
	TransferID        string
	Nonce             uint64
	OriginDomain      string
	DestinationDomain string
	To                string
	CallData          string

	Origin      *XTransferOrigin
	Destination *XTransferDestination
}

// Status is the destination status if the destination side is known, XCalled otherwise.
func (x *XTransfer) Status() XTransferStatus {
	if x.Destination != nil && x.Destination.Status != "" {
		return x.Destination.Status
	}
	return XTransferStatusXCalled
}

func (x *XTransfer) String() string {
	return fmt.Sprintf("XTransfer{id=%s nonce=%d %s->%s status=%s}",
		x.TransferID, x.Nonce, x.OriginDomain, x.DestinationDomain, x.Status())
}

// AssetBalance is a router's liquidity of one asset on one domain.
type AssetBalance struct {
	CanonicalID  string
	Domain       string
	LocalAsset   string
	AdoptedAsset string
	Balance      *big.Int
}

// RouterBalance groups the asset balances of a router.
type RouterBalance struct {
	Router string
	Assets []AssetBalance
}

// Bid is a router's offer to fast-execute a transfer.
type Bid struct {
	Router     string    `json:"router"`
	Fee        string    `json:"fee"` // decimal string, in local asset units
	Signature  string    `json:"signature"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (b *Bid) FeeInt() (*big.Int, bool) {
	return new(big.Int).SetString(b.Fee, 10)
}

type AuctionStatus string

const (
	AuctionStatusQueued  AuctionStatus = "Queued"
	AuctionStatusSent    AuctionStatus = "Sent"
	AuctionStatusExpired AuctionStatus = "Expired"
)

// Auction is the sequencer's record of the bids collected for a transfer.
type Auction struct {
	TransferID  string        `json:"transferId"`
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	Bids        []Bid         `json:"bids"`
	Status      AuctionStatus `json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	Winner      *Bid          `json:"winner,omitempty"`
	TaskID      string        `json:"taskId,omitempty"`
}
