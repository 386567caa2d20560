package chain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sepoliaProfile = `Name = "sepolia"
RPCURL = "https://rpc.sepolia.org"
ChainID = 11155111
ExplorerURL = "https://sepolia.etherscan.io/"

[Contracts]
Token = "0x1111111111111111111111111111111111111111"
Climate = "0x2222222222222222222222222222222222222222"
DAO = "0x3333333333333333333333333333333333333333"
`

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadNetwork(t *testing.T) {
	n, err := LoadNetwork(writeProfile(t, sepoliaProfile))
	require.NoError(t, err)
	assert.Equal(t, "sepolia", n.Name)
	assert.EqualValues(t, 11155111, n.ChainID)

	addrs, err := n.Addresses()
	require.NoError(t, err)
	require.NoError(t, addrs.Validate())
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), addrs.DAO)

	hash := common.HexToHash("0xabc")
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+hash.Hex(), n.ExplorerTxURL(hash))
}

func TestLoadNetworkUnknownField(t *testing.T) {
	_, err := LoadNetwork(writeProfile(t, "Name = \"x\"\nGasLimit = 5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GasLimit")
}

func TestAddressesValidate(t *testing.T) {
	n := &Network{Contracts: networkContracts{Token: "0x1111111111111111111111111111111111111111"}}
	addrs, err := n.Addresses()
	require.NoError(t, err)
	err = addrs.Validate()
	require.Error(t, err)
	assert.Equal(t, "missing contract address: climate, dao", err.Error())

	n.Contracts.DAO = "not-an-address"
	_, err = n.Addresses()
	assert.Error(t, err)
}

func TestExplorerTxURLUnset(t *testing.T) {
	var n *Network
	assert.Empty(t, n.ExplorerTxURL(common.HexToHash("0x1")))
	assert.Empty(t, (&Network{}).ExplorerTxURL(common.HexToHash("0x1")))
}
