package chain

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// Addresses of the deployed ClimaLink contracts.
type Addresses struct {
	Token   common.Address
	Climate common.Address
	DAO     common.Address
}

// Validate reports an error if any contract address is missing.
func (a Addresses) Validate() error {
	var missing []string
	if a.Token == (common.Address{}) {
		missing = append(missing, "token")
	}
	if a.Climate == (common.Address{}) {
		missing = append(missing, "climate")
	}
	if a.DAO == (common.Address{}) {
		missing = append(missing, "dao")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing contract address: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Network is a deployment profile: node endpoint, expected chain and contracts.
type Network struct {
	Name        string
	RPCURL      string `toml:",omitempty"`
	ChainID     int64
	ExplorerURL string `toml:",omitempty"`
	Contracts   networkContracts
}

type networkContracts struct {
	Token   string
	Climate string
	DAO     string
}

// Addresses parses the contract section of the profile.
func (n *Network) Addresses() (Addresses, error) {
	var out Addresses
	for _, f := range []struct {
		name string
		hex  string
		dst  *common.Address
	}{
		{"token", n.Contracts.Token, &out.Token},
		{"climate", n.Contracts.Climate, &out.Climate},
		{"dao", n.Contracts.DAO, &out.DAO},
	} {
		if f.hex == "" {
			continue
		}
		if !common.IsHexAddress(f.hex) {
			return out, fmt.Errorf("invalid %s address %q", f.name, f.hex)
		}
		*f.dst = common.HexToAddress(f.hex)
	}
	return out, nil
}

// ExplorerTxURL returns a block explorer link for hash, or "" when no explorer
// is configured.
func (n *Network) ExplorerTxURL(hash common.Hash) string {
	if n == nil || n.ExplorerURL == "" || hash == (common.Hash{}) {
		return ""
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash.Hex()
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in network profile", field)
	},
}

// LoadNetwork reads a TOML network profile.
func LoadNetwork(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var n Network
	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&n)
	// Add file name to errors that have a line number.
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
