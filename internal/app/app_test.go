package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/core/wallet"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
)

// writeKeygen 以 solana-keygen 格式写入私钥
func writeKeygen(t *testing.T, dir string) (string, solana.PrivateKey) {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(dir, "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, key
}

func TestProvideProfileOverrides(t *testing.T) {
	dir := t.TempDir()

	p, err := ProvideProfile(Options{ConfigDir: dir})
	require.NoError(t, err)
	assert.Equal(t, config.Devnet, p.Cluster)

	p, err = ProvideProfile(Options{ConfigDir: dir, Cluster: config.Mainnet, RPC: "http://127.0.0.1:8899", Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.Equal(t, "mainnet", p.Name)
	require.Len(t, p.Endpoints, 1)
	assert.Equal(t, "http://127.0.0.1:8899", p.Endpoints[0].URL)
	assert.Equal(t, "127.0.0.1:0", p.HTTP.Listen)

	_, err = ProvideProfile(Options{ConfigDir: dir, Profile: "staging"})
	assert.ErrorIs(t, err, config.ErrProfileNotFound)
}

func TestProvidePolicy(t *testing.T) {
	p := &config.Profile{}
	assert.Equal(t, submit.DefaultPolicy().MaxAttempts, ProvidePolicy(p).MaxAttempts)

	p.Submission.MaxAttempts = 5
	p.Submission.RetryBackoff = config.Duration(2 * time.Second)
	policy := ProvidePolicy(p)
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.Backoff)
}

func TestProvideSignerModes(t *testing.T) {
	dir := t.TempDir()
	path, key := writeKeygen(t, dir)
	logger := logimpl.NewNop()

	p := &config.Profile{KeypairPath: path}
	s, err := ProvideSigner(p, Options{}, logger)
	require.NoError(t, err)
	assert.Equal(t, wallet.SignerTypePrompt, s.Type())
	assert.Equal(t, key.PublicKey(), s.ActiveAccount())

	p.SignerMode = config.SignerModeKeypair
	s, err = ProvideSigner(p, Options{}, logger)
	require.NoError(t, err)
	assert.Equal(t, wallet.SignerTypeKeypair, s.Type())

	_, err = ProvideSigner(p, Options{NoPrompt: true}, logger)
	assert.ErrorIs(t, err, wallet.ErrRawKeyDisabled)

	p.AllowRawKeyExport = true
	s, err = ProvideSigner(p, Options{NoPrompt: true}, logger)
	require.NoError(t, err)
	assert.Equal(t, wallet.SignerTypeRawKey, s.Type())

	_, err = ProvideSigner(&config.Profile{KeypairPath: filepath.Join(dir, "missing.json")}, Options{}, logger)
	assert.ErrorIs(t, err, ErrNoKeypair)
}

func TestProvideSignerPrefersKeystore(t *testing.T) {
	dir := t.TempDir()
	key := solana.NewWallet().PrivateKey
	ks, err := wallet.SaveKeystore(dir, key, "secret", "test")
	require.NoError(t, err)

	p := &config.Profile{KeystorePath: ks, SignerMode: config.SignerModeKeypair}
	_, err = ProvideSigner(p, Options{}, logimpl.NewNop())
	assert.Error(t, err)

	s, err := ProvideSigner(p, Options{Password: func(string) (string, error) { return "secret", nil }}, logimpl.NewNop())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), s.ActiveAccount())
}

func TestProvidePrograms(t *testing.T) {
	p := &config.Profile{}
	reg, err := ProvidePrograms(p, nil)
	require.NoError(t, err)
	_, err = reg.For("fungible")
	assert.Error(t, err)

	p.Programs.NftChallenge = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	reg, err = ProvidePrograms(p, nil)
	require.NoError(t, err)
	c, err := reg.For("nft")
	require.NoError(t, err)
	assert.Equal(t, p.Programs.NftChallenge, c.ProgramID().String())
}

func TestOpenAndClose(t *testing.T) {
	dir := t.TempDir()
	path, key := writeKeygen(t, dir)

	rt, err := Open(Options{ConfigDir: dir, Keypair: path, RPC: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), rt.Service.Account())
	assert.True(t, rt.Bus.HasSubscribers("submission.completed"))
	require.NoError(t, rt.Close())
}
