package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// Trim 0x or 0X prefix off the string.
func Trim0xPrefix(str string) string {
	s := strings.TrimPrefix(str, "0x")
	return strings.TrimPrefix(s, "0X")
}

func Prepend0xPrefix(str string) string {
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		return str
	}
	return "0x" + str
}

// RandBytes32 generates [32]byte with random values
func RandBytes32() [32]byte {
	var b [32]byte
	n, err := rand.Read(b[:])

	if err != nil {
		return [32]byte{}
	}
	if n != 32 {
		return [32]byte{}
	}

	return b
}

// RandHexBytes32 is RandBytes32 as a 0x-prefixed lower-case hex string,
// the shape of transfer ids and tx hashes.
func RandHexBytes32() string {
	b := RandBytes32()
	return "0x" + hex.EncodeToString(b[:])
}

func RandBigInt(byteNum int) *big.Int {
	b := make([]byte, byteNum)
	if _, err := rand.Read(b); err != nil {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(b)
}

// IsBytes32Hex reports whether s is a 0x-prefixed 32-byte hex string.
func IsBytes32Hex(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	body := Trim0xPrefix(s)
	if len(body) != 64 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}

// Shorten shortens a hex string so that both sides have n characters and
// the rest is replaced with "..."
func Shorten(hexStr string, n int) string {
	str := Trim0xPrefix(hexStr)

	if len(str) <= n*2 {
		return Prepend0xPrefix(str)
	}
	return Prepend0xPrefix(str[:n] + "..." + str[len(str)-n:])
}
