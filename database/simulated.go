package database

import (
	"math/big"
	"time"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/common"
)

// RandOriginTransfer is a transfer as the origin subgraph reports it.
func RandOriginTransfer(origin, destination string, nonce uint64) *agreement.XTransfer {
	return &agreement.XTransfer{
		TransferID:        common.RandHexBytes32(),
		Nonce:             nonce,
		OriginDomain:      origin,
		DestinationDomain: destination,
		To:                common.RandEthAddress().Hex(),
		CallData:          "0x",
		Origin: &agreement.XTransferOrigin{
			Chain:            1337,
			Originator:       common.RandEthAddress().Hex(),
			TransactingAsset: common.RandEthAddress().Hex(),
			LocalAsset:       common.RandEthAddress().Hex(),
			Amount:           big.NewInt(100),
			XCall: &agreement.TxMeta{
				TxHash:      common.RandHexBytes32(),
				Caller:      common.RandEthAddress().Hex(),
				Timestamp:   uint64(time.Now().Unix()),
				BlockNumber: 1234567,
				GasPrice:    big.NewInt(1_000_000_000),
				GasLimit:    big.NewInt(21_000),
			},
		},
	}
}

// DestinationHalf returns the destination subgraph's view of x: same identity,
// no origin half.
func DestinationHalf(x *agreement.XTransfer, status agreement.XTransferStatus, ts uint64) *agreement.XTransfer {
	d := &agreement.XTransferDestination{
		Chain:      1338,
		Status:     status,
		Routers:    []string{common.NormalizeAddress(common.RandEthAddress().Hex())},
		LocalAsset: common.RandEthAddress().Hex(),
		Amount:     big.NewInt(99),
	}
	meta := &agreement.TxMeta{
		TxHash:      common.RandHexBytes32(),
		Caller:      common.RandEthAddress().Hex(),
		Timestamp:   ts,
		BlockNumber: 7654321,
	}
	switch status {
	case agreement.XTransferStatusExecuted, agreement.XTransferStatusCompletedFast:
		d.Execute = meta
	case agreement.XTransferStatusReconciled, agreement.XTransferStatusCompletedSlow:
		d.Reconcile = meta
	}

	return &agreement.XTransfer{
		TransferID:        x.TransferID,
		Nonce:             x.Nonce,
		OriginDomain:      x.OriginDomain,
		DestinationDomain: x.DestinationDomain,
		Destination:       d,
	}
}

func RandRouterBalance(domains ...string) *agreement.RouterBalance {
	rb := &agreement.RouterBalance{Router: common.NormalizeAddress(common.RandEthAddress().Hex())}
	canonical := common.RandHexBytes32()
	for _, d := range domains {
		rb.Assets = append(rb.Assets, agreement.AssetBalance{
			CanonicalID:  canonical,
			Domain:       d,
			LocalAsset:   common.RandEthAddress().Hex(),
			AdoptedAsset: common.RandEthAddress().Hex(),
			Balance:      common.RandBigInt(16),
		})
	}
	return rb
}
