package contracts

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/TEENet-io/xbridge-agents/common"
	"github.com/ethereum/go-ethereum/accounts"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// BidDigest is the message a router signs when bidding:
// keccak256(abi.encodePacked(transferId, fee)) wrapped as an eth signed message.
func BidDigest(transferID string, fee *big.Int) ([]byte, error) {
	packed, err := common.EncodePacked(transferID, fee)
	if err != nil {
		return nil, err
	}
	return accounts.TextHash(crypto.Keccak256(packed)), nil
}

func SignBid(sk *ecdsa.PrivateKey, transferID string, fee *big.Int) (string, error) {
	digest, err := BidDigest(transferID, fee)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, sk)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return ethcommon.Bytes2Hex(sig), nil
}

// RecoverBidSigner returns the lower-case address that produced signature.
func RecoverBidSigner(transferID string, fee *big.Int, signature string) (string, error) {
	sig := ethcommon.FromHex(common.Prepend0xPrefix(signature))
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest, err := BidDigest(transferID, fee)
	if err != nil {
		return "", err
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", err
	}
	return common.NormalizeAddress(crypto.PubkeyToAddress(*pub).Hex()), nil
}
