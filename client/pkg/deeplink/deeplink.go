// Package deeplink 解析钱包深链参数
//
// 深链形如 ?type=NFT&isMainnet=true&c=<challenge>，
// 由 Screen 决定打开哪一个流程。
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/program"
)

// 查询参数名
const (
	ParamType         = "type"
	ParamMainnet      = "isMainnet"
	ParamChallenge    = "c"
	ParamRedeem       = "redeem"
	ParamTx           = "tx"
	ParamVaultAddress = "vaultAddress"
	ParamIsExchange   = "isExchange"
)

// ErrInvalidLink 深链参数无效
var ErrInvalidLink = errors.New("invalid deep link")

// Screen 深链指向的流程
type Screen string

const (
	ScreenRedeem             Screen = "redeem"
	ScreenSign               Screen = "sign"
	ScreenCreateVaultAccount Screen = "create_vault_account"
	ScreenJoin               Screen = "join"
	ScreenWallet             Screen = "wallet"
)

// Link 解析后的深链
type Link struct {
	Type          string                `json:"type"`
	ChallengeType program.ChallengeType `json:"challenge_type"`
	Cluster       config.Cluster        `json:"cluster"`
	Challenge     string                `json:"challenge,omitempty"`
	Redeem        string                `json:"redeem,omitempty"`
	Tx            string                `json:"tx,omitempty"`
	VaultAddress  string                `json:"vault_address,omitempty"`
	IsExchange    bool                  `json:"is_exchange"`
}

// ParseURL 解析完整 URL 或仅查询串
func ParseURL(raw string) (*Link, error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
	}
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query = query[:i]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	return Parse(values)
}

// Parse 解析深链查询参数
// type 不区分大小写，缺省为 FT；地址参数必须是 32 字节的 base58。
func Parse(values url.Values) (*Link, error) {
	typ := strings.ToUpper(strings.TrimSpace(values.Get(ParamType)))
	if typ == "" {
		typ = "FT"
	}
	ct, err := program.ParseChallengeType(typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	link := &Link{
		Type:          typ,
		ChallengeType: ct,
		Cluster:       config.ClusterFromFlag(values.Get(ParamMainnet) == "true"),
		Redeem:        strings.TrimSpace(values.Get(ParamRedeem)),
		Tx:            strings.TrimSpace(values.Get(ParamTx)),
		IsExchange:    values.Get(ParamIsExchange) == "true" || typ == "EXCHANGE",
	}

	if link.Challenge, err = address(values, ParamChallenge); err != nil {
		return nil, err
	}
	if link.VaultAddress, err = address(values, ParamVaultAddress); err != nil {
		return nil, err
	}
	return link, nil
}

func address(values url.Values, key string) (string, error) {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return "", nil
	}
	if err := ValidateAddress(v); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidLink, key, err)
	}
	return v, nil
}

// ValidateAddress 校验 base58 编码的 32 字节地址
func ValidateAddress(s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("decoded length %d, want 32", len(b))
	}
	return nil
}

// Screen 按 redeem、tx、vaultAddress、c 的顺序选择流程，都没有时回到钱包页
func (l *Link) Screen() Screen {
	switch {
	case l.Redeem != "":
		return ScreenRedeem
	case l.Tx != "":
		return ScreenSign
	case l.VaultAddress != "":
		return ScreenCreateVaultAccount
	case l.Challenge != "":
		return ScreenJoin
	default:
		return ScreenWallet
	}
}

// Values 还原为查询参数
func (l *Link) Values() url.Values {
	v := url.Values{}
	if l.Type != "" {
		v.Set(ParamType, l.Type)
	}
	if l.Cluster == config.Mainnet {
		v.Set(ParamMainnet, "true")
	}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set(ParamChallenge, l.Challenge)
	set(ParamRedeem, l.Redeem)
	set(ParamTx, l.Tx)
	set(ParamVaultAddress, l.VaultAddress)
	if l.IsExchange {
		v.Set(ParamIsExchange, "true")
	}
	return v
}

// ExplorerKind 浏览器链接类别
type ExplorerKind string

const (
	ExplorerTx      ExplorerKind = "tx"
	ExplorerAccount ExplorerKind = "account"
)

// DefaultExplorer 默认区块浏览器
const DefaultExplorer = "https://solscan.io"

// ExplorerURL 生成区块浏览器链接
func ExplorerURL(base string, kind ExplorerKind, id string, cluster config.Cluster) string {
	if base == "" {
		base = DefaultExplorer
	}
	name := "devnet"
	if cluster == config.Mainnet {
		name = "mainnet"
	}
	return fmt.Sprintf("%s/%s/%s?cluster=%s", strings.TrimRight(base, "/"), kind, url.PathEscape(id), name)
}
