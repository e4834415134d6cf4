package offering

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	"github.com/weisyn/wager/internal/core/infrastructure/storage/memory"
)

type stubPrograms struct {
	program.Client
	accounts []program.OfferingAccount
	calls    int
}

func (s *stubPrograms) Type() program.ChallengeType { return program.NonFungible }

func (s *stubPrograms) Offerings(context.Context, solana.PublicKey) ([]program.OfferingAccount, error) {
	s.calls++
	return s.accounts, nil
}

type accountConn struct {
	transport.Connection
	accounts map[solana.PublicKey]*transport.AccountInfo
}

func (c *accountConn) GetAccountInfo(_ context.Context, pk solana.PublicKey) (*transport.AccountInfo, error) {
	if acc, ok := c.accounts[pk]; ok {
		return acc, nil
	}
	return nil, transport.ErrAccountNotFound
}

func newCache(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.New(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDisplayName(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	tests := []struct {
		name string
		in   Offering
		want string
	}{
		{"sol", Offering{Amount: 1_500_000_000}, "1.5 SOL"},
		{"nft", Offering{Amount: 1, Mint: &mint}, "NFT - " + mint.String()},
		{"nft with metadata", Offering{Mint: &mint, Metadata: &Metadata{Name: "Degen #1"}}, "Degen #1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.DisplayName())
		})
	}
}

func TestListCachesUntilInvalidated(t *testing.T) {
	challenge := solana.NewWallet().PublicKey()
	stub := &stubPrograms{accounts: []program.OfferingAccount{{Address: solana.NewWallet().PublicKey(), Challenge: challenge, Amount: 10}}}
	svc := NewService(program.NewRegistry(stub), nil, nil)
	bus := event.New(nil)
	_, err := svc.Subscribe(bus)
	require.NoError(t, err)

	list, err := svc.List(context.Background(), program.NonFungible, challenge)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = svc.List(context.Background(), program.NonFungible, challenge)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)

	bus.PublishSubmission(event.Submission{Kind: "join", Challenge: challenge, Success: true})
	_, _ = svc.List(context.Background(), program.NonFungible, challenge)
	assert.Equal(t, 1, stub.calls, "non-mutating submissions keep the cache")

	bus.PublishSubmission(event.Submission{Kind: "add_offering", Challenge: challenge, AffectsOfferings: true})
	_, _ = svc.List(context.Background(), program.NonFungible, challenge)
	assert.Equal(t, 1, stub.calls, "failed submissions keep the cache")

	bus.PublishSubmission(event.Submission{Kind: "add_offering", Challenge: challenge, Success: true, AffectsOfferings: true})
	_, err = svc.List(context.Background(), program.NonFungible, challenge)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)

	list[0].Amount = 99
	again, err := svc.List(context.Background(), program.NonFungible, challenge)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), again[0].Amount)
}

// encodeMetadataAccount 按 Metaplex 布局编码 name/symbol/uri
func encodeMetadataAccount(updateAuthority, mint solana.PublicKey, name, symbol, uri string) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteUint8(4)
	_ = enc.WriteBytes(updateAuthority.Bytes(), false)
	_ = enc.WriteBytes(mint.Bytes(), false)
	for _, s := range []string{name, symbol, uri} {
		_ = enc.WriteUint32(uint32(len(s)), bin.LE)
		_ = enc.WriteBytes([]byte(s), false)
	}
	return buf.Bytes()
}

func metadataFixture(t *testing.T, uri string) (*accountConn, solana.PublicKey) {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	addr, err := MetadataAddress(mint)
	require.NoError(t, err)

	name := "On-chain name\x00\x00\x00\x00"
	conn := &accountConn{accounts: map[solana.PublicKey]*transport.AccountInfo{
		addr: {Owner: TokenMetadataProgramID, Data: encodeMetadataAccount(solana.NewWallet().PublicKey(), mint, name, "SYM\x00", uri)},
	}}
	return conn, mint
}

func TestDecodeMetadataAccount(t *testing.T) {
	data := encodeMetadataAccount(solana.PublicKey{}, solana.PublicKey{}, "Name\x00\x00", "S", "https://x/y.json")
	md, err := DecodeMetadataAccount(data)
	require.NoError(t, err)
	assert.Equal(t, "Name", md.Name)
	assert.Equal(t, "S", md.Symbol)
	assert.Equal(t, "https://x/y.json", md.URI)

	_, err = DecodeMetadataAccount(data[:70])
	assert.Error(t, err)
}

func TestResolveFetchesOncePerMint(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Degen #1","image":"https://img/1.png","description":"d"}`))
	}))
	defer srv.Close()

	conn, mint := metadataFixture(t, srv.URL+"/1.json")
	r := NewMetadataResolver(conn, newCache(t), srv.Client(), nil)

	var wg sync.WaitGroup
	results := make([]*Metadata, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			md, err := r.Resolve(context.Background(), mint)
			if err == nil {
				results[i] = md
			}
		}(i)
	}
	close(release)
	wg.Wait()

	md, err := r.Resolve(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "Degen #1", md.Name)
	assert.Equal(t, "SYM", md.Symbol)
	assert.Equal(t, "https://img/1.png", md.Image)
	assert.Equal(t, mint, md.Mint)

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, "Degen #1", got.Name)
	}
	assert.Equal(t, int64(1), r.Fetches())
	assert.Equal(t, int32(1), hits.Load())
}

func TestResolveFailuresAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	conn, mint := metadataFixture(t, srv.URL)
	r := NewMetadataResolver(conn, newCache(t), srv.Client(), nil)

	_, err := r.Resolve(context.Background(), mint)
	require.Error(t, err)

	fail.Store(false)
	md, err := r.Resolve(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "ok", md.Name)
	assert.Equal(t, int64(2), r.Fetches())
}

func TestResolveWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"uncached"}`))
	}))
	defer srv.Close()

	conn, mint := metadataFixture(t, srv.URL)
	r := NewMetadataResolver(conn, nil, srv.Client(), nil)

	for i := 0; i < 2; i++ {
		md, err := r.Resolve(context.Background(), mint)
		require.NoError(t, err)
		assert.Equal(t, "uncached", md.Name)
	}
	assert.Equal(t, int64(2), r.Fetches())
}

func TestResolveSurvivesFirstCallerCancel(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte(`{"name":"shared"}`))
	}))
	defer srv.Close()

	conn, mint := metadataFixture(t, srv.URL)
	r := NewMetadataResolver(conn, newCache(t), srv.Client(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, mint)
		firstErr <- err
	}()
	<-entered

	second := make(chan *Metadata, 1)
	go func() {
		md, err := r.Resolve(context.Background(), mint)
		if err != nil {
			md = nil
		}
		second <- md
	}()

	cancel()
	close(release)

	require.NoError(t, <-firstErr)
	md := <-second
	require.NotNil(t, md)
	assert.Equal(t, "shared", md.Name)
	assert.Equal(t, int64(1), r.Fetches())
}

func TestResolveMissingAccount(t *testing.T) {
	r := NewMetadataResolver(&accountConn{}, newCache(t), nil, nil)
	_, err := r.Resolve(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrMetadataNotFound)
}

func TestWithMetadataSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Known"}`))
	}))
	defer srv.Close()

	conn, known := metadataFixture(t, srv.URL)
	unknown := solana.NewWallet().PublicKey()
	svc := NewService(program.NewRegistry(), NewMetadataResolver(conn, newCache(t), srv.Client(), nil), nil)

	list := svc.WithMetadata(context.Background(), []Offering{
		{Mint: &known},
		{Mint: &unknown},
		{Amount: 5},
	})
	require.NotNil(t, list[0].Metadata)
	assert.Equal(t, "Known", list[0].DisplayName())
	assert.Nil(t, list[1].Metadata)
	assert.Nil(t, list[2].Metadata)
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://ipfs.io/ipfs/bafy/1.json", gatewayURL("ipfs://bafy/1.json"))
	assert.Equal(t, "https://ipfs.io/ipfs/bafy", gatewayURL("ipfs://ipfs/bafy"))
	assert.Equal(t, "https://arweave.net/x", gatewayURL("https://arweave.net/x"))
}
