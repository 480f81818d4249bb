package registry

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"isoledger/crypto"
	"isoledger/native/irm"
	"isoledger/native/oracle"
	"isoledger/native/token"
)

func TestRegistryResolvesEachKind(t *testing.T) {
	reg := New()
	usdc := token.New("USDC", 6, nil)
	feed := oracle.NewStatic(uint256.NewInt(1))
	model := irm.Fixed{Rate: uint256.NewInt(1)}

	usdcAddr := crypto.DeriveAddress("usdc")
	feedAddr := crypto.DeriveAddress("feed")
	irmAddr := crypto.DeriveAddress("fixed-irm")
	botAddr := crypto.DeriveAddress("bot")

	require.NoError(t, reg.RegisterToken(usdcAddr, "usdc", usdc))
	require.NoError(t, reg.RegisterOracle(feedAddr, "feed", feed))
	require.NoError(t, reg.RegisterRateModel(irmAddr, "fixed-irm", model))
	require.NoError(t, reg.RegisterContract(botAddr, "bot", struct{}{}))

	gotToken, ok := reg.Token(usdcAddr)
	require.True(t, ok)
	require.Same(t, usdc, gotToken)

	_, ok = reg.Token(feedAddr)
	require.False(t, ok, "a feed address must not resolve as a token")

	_, ok = reg.Oracle(feedAddr)
	require.True(t, ok)
	_, ok = reg.RateModel(irmAddr)
	require.True(t, ok)
	_, ok = reg.Contract(botAddr)
	require.True(t, ok)

	require.Equal(t, "usdc", reg.Label(usdcAddr))
	stranger := crypto.DeriveAddress("stranger")
	require.Equal(t, stranger.String(), reg.Label(stranger))
	require.Equal(t, []string{"bot", "feed", "fixed-irm", "usdc"}, reg.SortedLabels())
}

func TestRegistryRejectsDuplicatesAndZero(t *testing.T) {
	reg := New()
	addr := crypto.DeriveAddress("usdc")
	require.NoError(t, reg.RegisterToken(addr, "usdc", token.New("USDC", 6, nil)))
	require.ErrorIs(t, reg.RegisterToken(addr, "usdc", token.New("USDC", 6, nil)), ErrAlreadyRegistered)
	require.ErrorIs(t, reg.RegisterToken(crypto.ZeroAddress, "zero", token.New("Z", 0, nil)), ErrZeroAddress)
}
