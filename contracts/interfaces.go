package contracts

import (
	"fmt"
	"strings"

	"github.com/TEENet-io/xbridge-agents/common"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// BridgeABI holds the bridge entrypoint methods the sequencer calls.
const BridgeABI = `[
  {
    "type": "function",
    "name": "execute",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_transferId", "type": "bytes32"},
      {"name": "_router", "type": "address"}
    ],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "type": "event",
    "name": "Executed",
    "anonymous": false,
    "inputs": [
      {"name": "transferId", "type": "bytes32", "indexed": true},
      {"name": "router", "type": "address", "indexed": true}
    ]
  }
]`

// Interfaces are the parsed contract ABIs.
type Interfaces struct {
	Bridge abi.ABI
}

func NewInterfaces() (*Interfaces, error) {
	bridge, err := abi.JSON(strings.NewReader(BridgeABI))
	if err != nil {
		return nil, err
	}
	return &Interfaces{Bridge: bridge}, nil
}

// EncodeExecute returns the calldata of execute(transferId, router).
func (i *Interfaces) EncodeExecute(transferID string, router string) ([]byte, error) {
	if !common.IsBytes32Hex(transferID) {
		return nil, fmt.Errorf("invalid transfer id: %s", transferID)
	}
	if !common.IsValidEthAddress(router) {
		return nil, fmt.Errorf("invalid router address: %s", router)
	}

	var id [32]byte
	copy(id[:], ethcommon.FromHex(transferID))
	return i.Bridge.Pack("execute", id, ethcommon.HexToAddress(router))
}

// DecodeExecute is the inverse of EncodeExecute.
func (i *Interfaces) DecodeExecute(data []byte) (string, string, error) {
	method, err := i.Bridge.MethodById(data)
	if err != nil {
		return "", "", err
	}
	if method.Name != "execute" {
		return "", "", fmt.Errorf("unexpected method %s", method.Name)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", "", err
	}
	id := args[0].([32]byte)
	router := args[1].(ethcommon.Address)
	return ethcommon.Hash(id).Hex(), common.NormalizeAddress(router.Hex()), nil
}
