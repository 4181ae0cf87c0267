package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RegistryAddress is the ENS registry deployment shared by mainnet and testnets
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	selectorOwner    = common.FromHex("0x02571be3")
	selectorResolver = common.FromHex("0x0178b8bf")
	selectorAddr     = common.FromHex("0x3b3b57de")
)

var (
	// ErrENSNameFormat is returned for names without a top-level domain
	ErrENSNameFormat = errors.New("missing top-level domain")

	// ErrENSNameNotFound is returned when a name has no resolver or record
	ErrENSNameNotFound = errors.New("ENS name not found")
)

// NameError reports an ENS failure for a specific name
type NameError struct {
	Name string
	Err  error
}

func (e *NameError) Error() string {
	switch {
	case errors.Is(e.Err, ErrENSNameFormat):
		return fmt.Sprintf("Missing top-level domain. Try '%s.eth'.", e.Name)
	case errors.Is(e.Err, ErrENSNameNotFound):
		return fmt.Sprintf("ENS name '%s' not found.", e.Name)
	default:
		return fmt.Sprintf("ENS name '%s': %v", e.Name, e.Err)
	}
}

func (e *NameError) Unwrap() error {
	return e.Err
}

// NameHash computes the EIP-137 node of a dotted name
func NameHash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), label))
	}
	return node
}

// CheckENSName rejects names the registry can never hold
func CheckENSName(name string) error {
	if !strings.Contains(name, ".") {
		return &NameError{Name: name, Err: ErrENSNameFormat}
	}
	return nil
}

// ResolveENS returns the address a name resolves to
func (c *Client) ResolveENS(ctx context.Context, name string) (common.Address, error) {
	if err := CheckENSName(name); err != nil {
		return common.Address{}, err
	}
	node := NameHash(name)

	resolver, err := c.callAddress(ctx, RegistryAddress, selectorResolver, node)
	if err != nil {
		return common.Address{}, &NameError{Name: name, Err: err}
	}
	if resolver == (common.Address{}) {
		return common.Address{}, &NameError{Name: name, Err: ErrENSNameNotFound}
	}

	address, err := c.callAddress(ctx, resolver, selectorAddr, node)
	if err != nil {
		return common.Address{}, &NameError{Name: name, Err: err}
	}
	if address == (common.Address{}) {
		return common.Address{}, &NameError{Name: name, Err: ErrENSNameNotFound}
	}
	return address, nil
}

// ENSOwner returns the registry owner of a name
func (c *Client) ENSOwner(ctx context.Context, name string) (common.Address, error) {
	if err := CheckENSName(name); err != nil {
		return common.Address{}, err
	}

	owner, err := c.callAddress(ctx, RegistryAddress, selectorOwner, NameHash(name))
	if err != nil {
		return common.Address{}, &NameError{Name: name, Err: err}
	}
	if owner == (common.Address{}) {
		return common.Address{}, &NameError{Name: name, Err: ErrENSNameNotFound}
	}
	return owner, nil
}

// callAddress calls a view function taking a node and returning an address
func (c *Client) callAddress(ctx context.Context, contract common.Address, selector []byte, node common.Hash) (common.Address, error) {
	data := make([]byte, 0, len(selector)+common.HashLength)
	data = append(data, selector...)
	data = append(data, node.Bytes()...)

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s: %w", contract.Hex(), err)
	}
	// No code at the address yields an empty result.
	if len(out) < common.HashLength {
		return common.Address{}, nil
	}
	return common.BytesToAddress(out[:common.HashLength]), nil
}
