package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameHash(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"eth", "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{"foo.eth", "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NameHash(tt.name).Hex(), "namehash(%q)", tt.name)
	}
}

func TestCheckENSName(t *testing.T) {
	assert.NoError(t, CheckENSName("vitalik.eth"))

	err := CheckENSName("vitalik")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrENSNameFormat)
	assert.Equal(t, "Missing top-level domain. Try 'vitalik.eth'.", err.Error())
}

func TestResolveENS(t *testing.T) {
	f := newFakeEth()
	resolver := common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41")
	target := common.HexToAddress(testAddrHex)
	f.ens[NameHash("in3.eth")] = ensRecord{
		owner:    target,
		resolver: resolver,
		addr:     target,
	}
	f.ens[NameHash("owned-only.eth")] = ensRecord{owner: target}
	c := newTestClient(t, f)
	ctx := context.Background()

	address, err := c.ResolveENS(ctx, "in3.eth")
	require.NoError(t, err)
	assert.Equal(t, target, address)

	_, err = c.ResolveENS(ctx, "owned-only.eth")
	assert.ErrorIs(t, err, ErrENSNameNotFound)
	assert.Equal(t, "ENS name 'owned-only.eth' not found.", err.Error())

	_, err = c.ResolveENS(ctx, "missing.eth")
	assert.ErrorIs(t, err, ErrENSNameNotFound)

	_, err = c.ResolveENS(ctx, "missing")
	assert.ErrorIs(t, err, ErrENSNameFormat)
}

func TestENSOwner(t *testing.T) {
	f := newFakeEth()
	owner := common.HexToAddress(testAddrHex)
	f.ens[NameHash("owned-only.eth")] = ensRecord{owner: owner}
	c := newTestClient(t, f)
	ctx := context.Background()

	got, err := c.ENSOwner(ctx, "owned-only.eth")
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	_, err = c.ENSOwner(ctx, "nobody.eth")
	var nameErr *NameError
	require.True(t, errors.As(err, &nameErr))
	assert.Equal(t, "nobody.eth", nameErr.Name)
	assert.ErrorIs(t, err, ErrENSNameNotFound)
}
