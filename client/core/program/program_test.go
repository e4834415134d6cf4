package program

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/transport"
)

// memConn 内存账户表，只实现程序客户端用到的读方法
type memConn struct {
	transport.Connection
	accounts map[solana.PublicKey]*transport.AccountInfo
	filters  []transport.MemcmpFilter
	program  solana.PublicKey
}

func newMemConn() *memConn {
	return &memConn{accounts: make(map[solana.PublicKey]*transport.AccountInfo)}
}

func (m *memConn) GetAccountInfo(_ context.Context, account solana.PublicKey) (*transport.AccountInfo, error) {
	acc, ok := m.accounts[account]
	if !ok {
		return nil, transport.ErrAccountNotFound
	}
	return acc, nil
}

func (m *memConn) GetProgramAccounts(_ context.Context, program solana.PublicKey, filters ...transport.MemcmpFilter) ([]transport.KeyedAccount, error) {
	m.program = program
	m.filters = filters
	var out []transport.KeyedAccount
	for addr, acc := range m.accounts {
		match := true
		for _, f := range filters {
			end := int(f.Offset) + len(f.Bytes)
			if end > len(acc.Data) || string(acc.Data[f.Offset:end]) != string(f.Bytes) {
				match = false
				break
			}
		}
		if match {
			out = append(out, transport.KeyedAccount{Address: addr, Account: *acc})
		}
	}
	return out, nil
}

func randomKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, [8]byte{206, 55, 2, 106, 113, 220, 17, 163}, InstructionDiscriminator("join"))
	assert.Equal(t, [8]byte{116, 18, 76, 87, 220, 132, 245, 25}, InstructionDiscriminator("add_sol_offering"))
	assert.Equal(t, [8]byte{128, 234, 9, 226, 125, 227, 146, 39}, AccountDiscriminator("Offering"))
}

func TestJoinInstruction(t *testing.T) {
	programID := randomKey()
	client, err := NewAnchorClient(Fungible, programID, newMemConn())
	require.NoError(t, err)

	challenge, player := randomKey(), randomKey()
	ixs, err := client.Join(context.Background(), challenge, player)
	require.NoError(t, err)
	require.Len(t, ixs, 1)

	ix := ixs[0]
	assert.Equal(t, programID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	disc := InstructionDiscriminator("join")
	assert.Equal(t, disc[:], data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 5)
	playerPDA, err := PlayerAddress(programID, challenge, player)
	require.NoError(t, err)
	assert.Equal(t, challenge, accounts[0].PublicKey)
	assert.Equal(t, playerPDA, accounts[1].PublicKey)
	assert.Equal(t, player, accounts[3].PublicKey)
	assert.True(t, accounts[3].IsSigner)
}

func TestAddSolOfferingEncodesAmount(t *testing.T) {
	client, err := NewAnchorClient(NonFungible, randomKey(), newMemConn())
	require.NoError(t, err)

	ixs, err := client.AddSolOffering(context.Background(), randomKey(), randomKey(), 1_000_000)
	require.NoError(t, err)

	data, err := ixs[0].Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:]))
}

func TestFungibleRejectsOfferingOperations(t *testing.T) {
	client, err := NewAnchorClient(Fungible, randomKey(), newMemConn())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Accept(ctx, randomKey(), randomKey())
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = client.AddSolOffering(ctx, randomKey(), randomKey(), 1)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = client.RemoveOffering(ctx, randomKey(), randomKey(), randomKey())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPlayerStatusQuery(t *testing.T) {
	programID := randomKey()
	conn := newMemConn()
	client, err := NewAnchorClient(NonFungible, programID, conn)
	require.NoError(t, err)

	challenge, player := randomKey(), randomKey()
	status, err := client.PlayerStatus(context.Background(), challenge, player)
	require.NoError(t, err)
	assert.Equal(t, NotInGame, status)

	pda, err := PlayerAddress(programID, challenge, player)
	require.NoError(t, err)
	conn.accounts[pda] = &transport.AccountInfo{Owner: programID, Data: EncodePlayer(challenge, player, Accepted)}

	status, err = client.PlayerStatus(context.Background(), challenge, player)
	require.NoError(t, err)
	assert.Equal(t, Accepted, status)
	assert.Equal(t, "ACCEPTED", status.String())
}

func TestOfferingsAndRemove(t *testing.T) {
	programID := randomKey()
	conn := newMemConn()
	client, err := NewAnchorClient(NonFungible, programID, conn)
	require.NoError(t, err)

	challenge, other := randomKey(), randomKey()
	authority, mint := randomKey(), randomKey()

	solOffering := &OfferingAccount{Challenge: challenge, Authority: authority, Amount: 500_000_000, IsEscrowed: true}
	nftOffering := &OfferingAccount{Challenge: challenge, Authority: authority, Amount: 1, Mint: &mint}
	foreign := &OfferingAccount{Challenge: other, Authority: authority, Amount: 7}

	solAddr, nftAddr, foreignAddr := randomKey(), randomKey(), randomKey()
	conn.accounts[solAddr] = &transport.AccountInfo{Owner: programID, Data: EncodeOffering(solOffering)}
	conn.accounts[nftAddr] = &transport.AccountInfo{Owner: programID, Data: EncodeOffering(nftOffering)}
	conn.accounts[foreignAddr] = &transport.AccountInfo{Owner: programID, Data: EncodeOffering(foreign)}

	offerings, err := client.Offerings(context.Background(), challenge)
	require.NoError(t, err)
	require.Len(t, offerings, 2)
	assert.Equal(t, programID, conn.program)
	require.Len(t, conn.filters, 2)
	assert.Equal(t, uint64(offeringChallengeOffset), conn.filters[1].Offset)

	byAddr := map[solana.PublicKey]OfferingAccount{}
	for _, o := range offerings {
		byAddr[o.Address] = o
	}
	assert.Nil(t, byAddr[solAddr].Mint)
	assert.Equal(t, uint64(500_000_000), byAddr[solAddr].Amount)
	assert.True(t, byAddr[solAddr].IsEscrowed)
	require.NotNil(t, byAddr[nftAddr].Mint)
	assert.Equal(t, mint, *byAddr[nftAddr].Mint)

	ixs, err := client.RemoveOffering(context.Background(), challenge, authority, nftAddr)
	require.NoError(t, err)
	assert.Len(t, ixs[0].Accounts(), 8, "nft removal carries token accounts")

	ixs, err = client.RemoveOffering(context.Background(), challenge, authority, solAddr)
	require.NoError(t, err)
	assert.Len(t, ixs[0].Accounts(), 5)

	_, err = client.RemoveOffering(context.Background(), challenge, authority, foreignAddr)
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestChallengeInfo(t *testing.T) {
	programID := randomKey()
	conn := newMemConn()
	client, err := NewAnchorClient(Fungible, programID, conn)
	require.NoError(t, err)

	challenge := randomKey()
	_, err = client.ChallengeInfo(context.Background(), challenge)
	require.ErrorIs(t, err, ErrChallengeNotFound)

	want := &ChallengeInfo{
		Authority:  randomKey(),
		EntryFee:   10_000_000,
		RakeBps:    250,
		MaxPlayers: 2,
		Players:    2,
		State:      ChallengeOpen,
	}
	conn.accounts[challenge] = &transport.AccountInfo{Owner: programID, Data: EncodeChallenge(want)}

	got, err := client.ChallengeInfo(context.Background(), challenge)
	require.NoError(t, err)
	assert.Equal(t, want.Authority, got.Authority)
	assert.Equal(t, want.EntryFee, got.EntryFee)
	assert.Equal(t, uint16(250), got.RakeBps)
	assert.True(t, got.IsFull())
	assert.Equal(t, challenge, got.Address)
	assert.Equal(t, Fungible, got.Type)

	conn.accounts[challenge].Owner = randomKey()
	_, err = client.ChallengeInfo(context.Background(), challenge)
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestDecodeRejectsWrongDiscriminator(t *testing.T) {
	_, err := DecodePlayerStatus(EncodeOffering(&OfferingAccount{}))
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestRegistry(t *testing.T) {
	nft, err := NewAnchorClient(NonFungible, randomKey(), newMemConn())
	require.NoError(t, err)
	reg := NewRegistry(nft)

	got, err := reg.For(NonFungible)
	require.NoError(t, err)
	assert.Equal(t, nft, got)

	_, err = reg.For(Fungible)
	assert.ErrorIs(t, err, ErrProgramNotConfigured)

	_, err = NewAnchorClient(Fungible, solana.PublicKey{}, newMemConn())
	assert.ErrorIs(t, err, ErrProgramNotConfigured)
}

func TestParseChallengeType(t *testing.T) {
	tests := []struct {
		in   string
		want ChallengeType
		ok   bool
	}{
		{"FT", Fungible, true},
		{"", Fungible, true},
		{"NFT", NonFungible, true},
		{"exchange", NonFungible, true},
		{"poker", "", false},
	}
	for _, tt := range tests {
		got, err := ParseChallengeType(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPlayerStatusWireForm(t *testing.T) {
	raw, err := json.Marshal(map[string]PlayerStatus{"a": NotInGame, "b": Accepted, "c": Joined})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"NOT_IN_GAME","b":"ACCEPTED","c":"JOINED"}`, string(raw))

	for _, s := range []PlayerStatus{NotInGame, Accepted, Joined} {
		back, err := ParsePlayerStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
}
