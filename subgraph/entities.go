package subgraph

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/TEENet-io/xbridge-agents/agreement"
	"github.com/TEENet-io/xbridge-agents/common"
)

// The graph encodes BigInt and BigDecimal values as JSON strings.

type metaResponse struct {
	Meta struct {
		Block struct {
			Number uint64 `json:"number"`
		} `json:"block"`
	} `json:"_meta"`
}

type originTransferEntity struct {
	TransferID        string `json:"transferId"`
	Nonce             string `json:"nonce"`
	OriginDomain      string `json:"originDomain"`
	DestinationDomain string `json:"destinationDomain"`
	To                string `json:"to"`
	CallData          string `json:"callData"`
	ChainID           string `json:"chainId"`
	Originator        string `json:"originator"`
	TransactingAsset  string `json:"transactingAsset"`
	LocalAsset        string `json:"localAsset"`
	Amount            string `json:"amount"`
	TransactionHash   string `json:"transactionHash"`
	Caller            string `json:"caller"`
	Timestamp         string `json:"timestamp"`
	BlockNumber       string `json:"blockNumber"`
	GasPrice          string `json:"gasPrice"`
	GasLimit          string `json:"gasLimit"`
}

type destinationTransferEntity struct {
	TransferID        string `json:"transferId"`
	Nonce             string `json:"nonce"`
	OriginDomain      string `json:"originDomain"`
	DestinationDomain string `json:"destinationDomain"`
	To                string `json:"to"`
	CallData          string `json:"callData"`
	ChainID           string `json:"chainId"`
	Status            string `json:"status"`
	Routers           []struct {
		ID string `json:"id"`
	} `json:"routers"`
	LocalAsset string `json:"localAsset"`
	Amount     string `json:"amount"`

	ExecutedTransactionHash string `json:"executedTransactionHash"`
	ExecutedCaller          string `json:"executedCaller"`
	ExecutedTimestamp       string `json:"executedTimestamp"`
	ExecutedBlockNumber     string `json:"executedBlockNumber"`
	ExecutedGasPrice        string `json:"executedGasPrice"`
	ExecutedGasLimit        string `json:"executedGasLimit"`

	ReconciledTransactionHash string `json:"reconciledTransactionHash"`
	ReconciledCaller          string `json:"reconciledCaller"`
	ReconciledTimestamp       string `json:"reconciledTimestamp"`
	ReconciledBlockNumber     string `json:"reconciledBlockNumber"`
	ReconciledGasPrice        string `json:"reconciledGasPrice"`
	ReconciledGasLimit        string `json:"reconciledGasLimit"`
}

type assetBalanceEntity struct {
	Amount string `json:"amount"`
	Router struct {
		ID string `json:"id"`
	} `json:"router"`
	Asset struct {
		CanonicalID     string `json:"canonicalId"`
		CanonicalDomain string `json:"canonicalDomain"`
		Local           string `json:"local"`
		AdoptedAsset    string `json:"adoptedAsset"`
	} `json:"asset"`
}

func (e *originTransferEntity) toXTransfer() (*agreement.XTransfer, error) {
	nonce, err := parseUint(e.Nonce)
	if err != nil {
		return nil, fmt.Errorf("origin transfer %s: nonce: %w", e.TransferID, err)
	}
	chain, err := parseUint(e.ChainID)
	if err != nil {
		return nil, fmt.Errorf("origin transfer %s: chainId: %w", e.TransferID, err)
	}
	amount, err := parseBig(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("origin transfer %s: amount: %w", e.TransferID, err)
	}
	xcall, err := parseTxMeta(e.TransactionHash, e.Caller, e.Timestamp, e.BlockNumber, e.GasPrice, e.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("origin transfer %s: xcall: %w", e.TransferID, err)
	}

	return &agreement.XTransfer{
		TransferID:        e.TransferID,
		Nonce:             nonce,
		OriginDomain:      e.OriginDomain,
		DestinationDomain: e.DestinationDomain,
		To:                e.To,
		CallData:          e.CallData,
		Origin: &agreement.XTransferOrigin{
			Chain:            chain,
			Originator:       e.Originator,
			TransactingAsset: e.TransactingAsset,
			LocalAsset:       e.LocalAsset,
			Amount:           amount,
			XCall:            xcall,
		},
	}, nil
}

func (e *destinationTransferEntity) toXTransfer() (*agreement.XTransfer, error) {
	nonce, err := parseUint(e.Nonce)
	if err != nil {
		return nil, fmt.Errorf("destination transfer %s: nonce: %w", e.TransferID, err)
	}
	chain, err := parseUint(e.ChainID)
	if err != nil {
		return nil, fmt.Errorf("destination transfer %s: chainId: %w", e.TransferID, err)
	}
	status, err := agreement.ParseXTransferStatus(e.Status)
	if err != nil {
		return nil, fmt.Errorf("destination transfer %s: %w", e.TransferID, err)
	}
	amount, err := parseBig(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("destination transfer %s: amount: %w", e.TransferID, err)
	}
	execute, err := parseTxMeta(e.ExecutedTransactionHash, e.ExecutedCaller, e.ExecutedTimestamp,
		e.ExecutedBlockNumber, e.ExecutedGasPrice, e.ExecutedGasLimit)
	if err != nil {
		return nil, fmt.Errorf("destination transfer %s: execute: %w", e.TransferID, err)
	}
	reconcile, err := parseTxMeta(e.ReconciledTransactionHash, e.ReconciledCaller, e.ReconciledTimestamp,
		e.ReconciledBlockNumber, e.ReconciledGasPrice, e.ReconciledGasLimit)
	if err != nil {
		return nil, fmt.Errorf("destination transfer %s: reconcile: %w", e.TransferID, err)
	}

	routers := make([]string, 0, len(e.Routers))
	for _, r := range e.Routers {
		routers = append(routers, common.NormalizeAddress(r.ID))
	}

	return &agreement.XTransfer{
		TransferID:        e.TransferID,
		Nonce:             nonce,
		OriginDomain:      e.OriginDomain,
		DestinationDomain: e.DestinationDomain,
		To:                e.To,
		CallData:          e.CallData,
		Destination: &agreement.XTransferDestination{
			Chain:      chain,
			Status:     status,
			Routers:    routers,
			LocalAsset: e.LocalAsset,
			Amount:     amount,
			Execute:    execute,
			Reconcile:  reconcile,
		},
	}, nil
}

func (e *assetBalanceEntity) toRouterAsset(domain string) (*RouterAsset, error) {
	balance, err := parseBig(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("asset balance of %s: %w", e.Router.ID, err)
	}
	if balance == nil {
		balance = new(big.Int)
	}
	return &RouterAsset{
		Router:          common.NormalizeAddress(e.Router.ID),
		CanonicalDomain: e.Asset.CanonicalDomain,
		AssetBalance: agreement.AssetBalance{
			CanonicalID:  e.Asset.CanonicalID,
			Domain:       domain,
			LocalAsset:   e.Asset.Local,
			AdoptedAsset: e.Asset.AdoptedAsset,
			Balance:      balance,
		},
	}, nil
}

// parseTxMeta returns nil when the transaction did not happen yet.
func parseTxMeta(hash, caller, timestamp, blockNumber, gasPrice, gasLimit string) (*agreement.TxMeta, error) {
	if hash == "" {
		return nil, nil
	}
	ts, err := parseUint(timestamp)
	if err != nil {
		return nil, err
	}
	bn, err := parseUint(blockNumber)
	if err != nil {
		return nil, err
	}
	gp, err := parseBig(gasPrice)
	if err != nil {
		return nil, err
	}
	gl, err := parseBig(gasLimit)
	if err != nil {
		return nil, err
	}
	return &agreement.TxMeta{
		TxHash:      hash,
		Caller:      caller,
		Timestamp:   ts,
		BlockNumber: bn,
		GasPrice:    gp,
		GasLimit:    gl,
	}, nil
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}
	return b, nil
}
