package common

import (
	"crypto/rand"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func RandEthAddress() ethcommon.Address {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return ethcommon.Address{}
	}
	return ethcommon.BytesToAddress(b[:])
}

func IsValidEthAddress(addr string) bool {
	return ethcommon.IsHexAddress(addr)
}

// NormalizeAddress lower-cases an address so that subgraph ids (lower-case)
// and user input (checksummed) compare equal.
func NormalizeAddress(addr string) string {
	return strings.ToLower(Prepend0xPrefix(addr))
}
