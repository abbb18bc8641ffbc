package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodePacked mimics solidity's abi.encodePacked for the types we sign over.
// Strings with a 0x prefix are taken as hex bytes.
func EncodePacked(values ...interface{}) ([]byte, error) {
	var res [][]byte
	for _, value := range values {
		switch v := value.(type) {
		case string:
			b, err := encodeString(v)
			if err != nil {
				return nil, err
			}
			res = append(res, b)
		case []byte:
			res = append(res, v)
		case [32]byte:
			res = append(res, v[:])
		case *big.Int:
			res = append(res, math.U256Bytes(new(big.Int).Set(v)))
		case common.Hash:
			res = append(res, v[:])
		case common.Address:
			res = append(res, v.Bytes())
		default:
			return nil, fmt.Errorf("encodePacked: unsupported type %T", value)
		}
	}
	return bytes.Join(res, nil), nil
}

func encodeString(v string) ([]byte, error) {
	if strings.HasPrefix(v, "0x") {
		return encodeHexString(v)
	}

	return []byte(v), nil
}

func encodeHexString(v string) ([]byte, error) {
	decoded, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
	if err != nil {
		return nil, fmt.Errorf("encodePacked: invalid hex string %q: %w", v, err)
	}
	return decoded, nil
}
