package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/challenge"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/output"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/client/core/wallet"
	"github.com/weisyn/wager/internal/app"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	globalFlags = GlobalFlags{}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestProfileSetPersists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "--config-dir", dir, "--silent", "-o", "json", "profile", "set", "rpc", "http://127.0.0.1:8899"))

	pm, err := config.NewProfileManager(dir)
	require.NoError(t, err)
	p, err := pm.GetProfile(string(config.Devnet))
	require.NoError(t, err)
	require.Len(t, p.Endpoints, 1)
	assert.Equal(t, "http://127.0.0.1:8899", p.Endpoints[0].URL)
}

func TestProfileSetRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, run(t, "--config-dir", dir, "--silent", "profile", "set", "no_such_key", "x"))
}

func TestProfileCreateAndUse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(t, "--config-dir", dir, "--silent", "-o", "json", "profile", "create", "local", "--from", "devnet"))
	require.NoError(t, run(t, "--config-dir", dir, "--silent", "-o", "json", "profile", "use", "local"))

	pm, err := config.NewProfileManager(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", pm.CurrentName())

	// 当前 profile 不能删除
	assert.Error(t, run(t, "--config-dir", dir, "--silent", "-y", "profile", "delete", "local"))
}

func TestMainnetAndDevnetExclusive(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, run(t, "--config-dir", dir, "--mainnet", "--devnet", "profile", "list"))
}

func TestLinkWithoutExecute(t *testing.T) {
	dir := t.TempDir()
	ch := "11111111111111111111111111111112"
	assert.NoError(t, run(t, "--config-dir", dir, "--silent", "-o", "json", "link", "https://app.example/?type=NFT&isMainnet=true&c="+ch))
	assert.Error(t, run(t, "--config-dir", dir, "--silent", "link", "?c=not-base58!"))
}

func TestReadEncodedTx(t *testing.T) {
	got, err := readEncodedTx([]string{"  AQID  "})
	require.NoError(t, err)
	assert.Equal(t, "AQID", got)

	path := filepath.Join(t.TempDir(), "tx.b64")
	require.NoError(t, os.WriteFile(path, []byte("AQID\n"), 0600))
	txFile = path
	defer func() { txFile = "" }()
	got, err = readEncodedTx(nil)
	require.NoError(t, err)
	assert.Equal(t, "AQID", got)

	txFile = ""
	_, err = readEncodedTx(nil)
	assert.Error(t, err)
}

func TestCloneProfileIsDeep(t *testing.T) {
	base := config.DefaultProfiles()[0]
	cp, err := cloneProfile(base)
	require.NoError(t, err)
	require.NoError(t, cp.Set("rpc", "http://other:8899"))
	assert.NotEqual(t, base.Endpoints[0].URL, cp.Endpoints[0].URL)
}

func captureFormatter(t *testing.T) (out, logs *bytes.Buffer) {
	t.Helper()
	out, logs = &bytes.Buffer{}, &bytes.Buffer{}
	prev := formatter
	formatter = output.NewFormatter(output.FormatJSON, out)
	formatter.SetLogWriter(logs)
	t.Cleanup(func() { formatter = prev })
	return out, logs
}

func TestPrintResultExitCodes(t *testing.T) {
	rt := &app.Runtime{Profile: config.DefaultProfiles()[0]}
	challenge := solana.NewWallet().PublicKey()

	tests := []struct {
		name     string
		result   *submit.Result
		wantCode int
	}{
		{"success", &submit.Result{Kind: builder.KindJoin, Challenge: challenge, Signature: solana.Signature{1}}, 0},
		{"already joined", &submit.Result{Kind: builder.KindJoin, Challenge: challenge, Err: &submit.ClassifiedError{Class: submit.ClassAlreadyJoined}}, 0},
		{"user cancelled", &submit.Result{Kind: builder.KindJoin, Challenge: challenge, Err: &submit.ClassifiedError{Class: submit.ClassUserRejected}}, 0},
		{"capacity full", &submit.Result{Kind: builder.KindJoin, Challenge: challenge, Err: &submit.ClassifiedError{Class: submit.ClassCapacityFull}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, logs := captureFormatter(t)

			err := printResult(rt, tt.result)
			if tt.wantCode == 0 {
				require.NoError(t, err)
			} else {
				var ee *exitError
				require.True(t, errors.As(err, &ee))
				assert.Equal(t, tt.wantCode, ee.code)
			}

			var data map[string]interface{}
			require.NoError(t, json.Unmarshal(out.Bytes(), &data))
			assert.Equal(t, string(builder.KindJoin), data["kind"])
			assert.Contains(t, logs.String(), tt.result.Message())
		})
	}
}

func TestPrintResultCancelledIsNeutral(t *testing.T) {
	out, logs := captureFormatter(t)
	res := &submit.Result{Kind: builder.KindAccept, Err: &submit.ClassifiedError{Class: submit.ClassUserRejected}}

	require.NoError(t, printResult(&app.Runtime{Profile: config.DefaultProfiles()[0]}, res))

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &data))
	assert.Equal(t, true, data["cancelled"])
	assert.NotContains(t, logs.String(), "ERROR")
	assert.Contains(t, logs.String(), "Request cancelled.")
}

// tokenConn 只实现 import-token 用到的方法，记录广播的交易
type tokenConn struct {
	transport.Connection

	tokens []transport.TokenAccount
	sent   []*solana.Transaction
}

func (c *tokenConn) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{5}, nil
}

func (c *tokenConn) SendRawTransaction(_ context.Context, raw []byte, _ transport.SendOptions) (solana.Signature, error) {
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return solana.Signature{}, err
	}
	c.sent = append(c.sent, tx)
	return solana.Signature{7}, nil
}

func (c *tokenConn) GetTokenAccountsByOwner(context.Context, solana.PublicKey) ([]transport.TokenAccount, error) {
	return c.tokens, nil
}

func (c *tokenConn) GetAccountInfo(context.Context, solana.PublicKey) (*transport.AccountInfo, error) {
	return nil, transport.ErrAccountNotFound
}

func newTokenService(t *testing.T, conn *tokenConn) *challenge.Service {
	t.Helper()
	signer, err := wallet.NewKeypairSigner(solana.NewWallet().PrivateKey)
	require.NoError(t, err)
	pipeline := submit.NewPipeline(conn, signer, submit.DefaultPolicy())
	svc, err := challenge.NewService(challenge.Deps{
		Conn: conn, Signer: signer, Programs: program.NewRegistry(), Pipeline: pipeline,
	})
	require.NoError(t, err)
	return svc
}

func TestImportTokenCreatesMissingAccount(t *testing.T) {
	conn := &tokenConn{}
	svc := newTokenService(t, conn)
	mint := solana.NewWallet().PublicKey()

	existing, res, err := importToken(context.Background(), svc, mint)
	require.NoError(t, err)
	assert.Nil(t, existing)
	require.NotNil(t, res)
	assert.True(t, res.Success())
	assert.Equal(t, builder.KindCreateTokenAccount, res.Kind)

	require.Len(t, conn.sent, 1)
	ata, _, err := solana.FindAssociatedTokenAddress(svc.Account(), mint)
	require.NoError(t, err)
	keys := conn.sent[0].Message.AccountKeys
	assert.Contains(t, keys, ata)
	assert.Contains(t, keys, mint)
	assert.Equal(t, svc.Account(), keys[0], "owner pays")
}

func TestImportTokenSkipsExistingAccount(t *testing.T) {
	conn := &tokenConn{}
	svc := newTokenService(t, conn)
	mint := solana.NewWallet().PublicKey()
	ata, _, err := solana.FindAssociatedTokenAddress(svc.Account(), mint)
	require.NoError(t, err)
	conn.tokens = []transport.TokenAccount{{Address: ata, Mint: mint, Owner: svc.Account(), Amount: 5}}

	existing, res, err := importToken(context.Background(), svc, mint)
	require.NoError(t, err)
	assert.Nil(t, res)
	require.NotNil(t, existing)
	assert.Equal(t, ata, existing.Address)
	assert.Equal(t, uint64(5), existing.Amount)
	assert.Empty(t, conn.sent)
}
