package deeplink

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/program"
)

const (
	challengeAddr = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	vaultAddr     = "So11111111111111111111111111111111111111112"
)

func TestParseDefaults(t *testing.T) {
	link, err := Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "FT", link.Type)
	assert.Equal(t, program.Fungible, link.ChallengeType)
	assert.Equal(t, config.Devnet, link.Cluster)
	assert.Equal(t, ScreenWallet, link.Screen())
}

func TestParseJoinLink(t *testing.T) {
	link, err := ParseURL("https://app.example/?type=nft&isMainnet=true&c=" + challengeAddr)
	require.NoError(t, err)
	assert.Equal(t, "NFT", link.Type)
	assert.Equal(t, program.NonFungible, link.ChallengeType)
	assert.Equal(t, config.Mainnet, link.Cluster)
	assert.Equal(t, challengeAddr, link.Challenge)
	assert.Equal(t, ScreenJoin, link.Screen())
}

func TestParseMainnetFlagIsExact(t *testing.T) {
	link, err := Parse(url.Values{ParamMainnet: {"TRUE"}})
	require.NoError(t, err)
	assert.Equal(t, config.Devnet, link.Cluster)
}

func TestScreenPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   Screen
	}{
		{"redeem wins", url.Values{ParamRedeem: {"AAAA"}, ParamTx: {"BBBB"}, ParamChallenge: {challengeAddr}}, ScreenRedeem},
		{"tx over vault", url.Values{ParamTx: {"BBBB"}, ParamVaultAddress: {vaultAddr}}, ScreenSign},
		{"vault over join", url.Values{ParamVaultAddress: {vaultAddr}, ParamChallenge: {challengeAddr}}, ScreenCreateVaultAccount},
		{"join", url.Values{ParamChallenge: {challengeAddr}}, ScreenJoin},
		{"wallet", url.Values{ParamType: {"FT"}}, ScreenWallet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := Parse(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, link.Screen())
		})
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse(url.Values{ParamChallenge: {"not-base58-0OIl"}})
	assert.True(t, errors.Is(err, ErrInvalidLink))

	_, err = Parse(url.Values{ParamVaultAddress: {"abc"}})
	assert.True(t, errors.Is(err, ErrInvalidLink))

	_, err = Parse(url.Values{ParamType: {"bogus"}})
	assert.True(t, errors.Is(err, ErrInvalidLink))
}

func TestExchangeLink(t *testing.T) {
	link, err := Parse(url.Values{ParamType: {"exchange"}, ParamChallenge: {challengeAddr}})
	require.NoError(t, err)
	assert.True(t, link.IsExchange)
	assert.Equal(t, program.NonFungible, link.ChallengeType)
}

func TestValuesRoundTrip(t *testing.T) {
	in := url.Values{ParamType: {"NFT"}, ParamMainnet: {"true"}, ParamChallenge: {challengeAddr}}
	link, err := Parse(in)
	require.NoError(t, err)
	again, err := Parse(link.Values())
	require.NoError(t, err)
	assert.Equal(t, link, again)
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://solscan.io/tx/abc?cluster=devnet", ExplorerURL("", ExplorerTx, "abc", config.Devnet))
	assert.Equal(t, "https://solscan.io/account/"+vaultAddr+"?cluster=mainnet",
		ExplorerURL("https://solscan.io/", ExplorerAccount, vaultAddr, config.Mainnet))
}
