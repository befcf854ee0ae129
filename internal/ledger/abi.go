package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// registryABIJSON describes the BondRegistry contract surface the gateway
// drives: mintBond registers a bond record and issues the backing tokens,
// transfer moves tokens between accounts, and the read functions expose the
// registry state the cache window is rebuilt from.
const registryABIJSON = `[
  {
    "type": "function",
    "name": "mintBond",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_name", "type": "string"},
      {"name": "_isin", "type": "string"},
      {"name": "_faceValue", "type": "uint256"},
      {"name": "_yieldBps", "type": "uint256"},
      {"name": "_docHash", "type": "string"},
      {"name": "_ipfsLink", "type": "string"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "transfer",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_to", "type": "address"},
      {"name": "_amount", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function",
    "name": "bondCount",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "bonds",
    "stateMutability": "view",
    "inputs": [{"name": "_id", "type": "uint256"}],
    "outputs": [
      {"name": "name", "type": "string"},
      {"name": "isin", "type": "string"},
      {"name": "faceValue", "type": "uint256"},
      {"name": "yieldBps", "type": "uint256"},
      {"name": "lastUpdate", "type": "uint256"},
      {"name": "docHash", "type": "string"},
      {"name": "ipfsLink", "type": "string"},
      {"name": "active", "type": "bool"}
    ]
  },
  {
    "type": "function",
    "name": "balanceOf",
    "stateMutability": "view",
    "inputs": [{"name": "_owner", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "event",
    "name": "BondMinted",
    "inputs": [
      {"name": "id", "type": "uint256", "indexed": true},
      {"name": "isin", "type": "string", "indexed": false}
    ],
    "anonymous": false
  }
]`

// registryABI parses the contract ABI once at package init. A parse failure
// here is a programming error, not a runtime condition.
var registryABI = mustParseABI(registryABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("ledger: parsing registry ABI: %v", err))
	}
	return parsed
}
