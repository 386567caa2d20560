package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		in   *big.Int
		want string
	}{
		{nil, "0.0"},
		{big.NewInt(0), "0.0"},
		{Tokens(100), "100.0"},
		{new(big.Int).Add(Tokens(12), big.NewInt(5e17)), "12.5"},
		{big.NewInt(1), "0.000000000000000001"},
		{new(big.Int).Neg(Tokens(3)), "-3.0"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatTokens(c.in))
	}
}

func TestParseTokens(t *testing.T) {
	v, err := ParseTokens("12.5")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(new(big.Int).Add(Tokens(12), big.NewInt(5e17))))

	v, err = ParseTokens(".25")
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000", v.String())

	v, err = ParseTokens("100")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(Tokens(100)))

	for _, bad := range []string{"", "-1", "abc", "1.2.3", "0.0000000000000000001"} {
		_, err := ParseTokens(bad)
		assert.Error(t, err, bad)
	}
}
