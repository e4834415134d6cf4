package offering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/singleflight"

	"github.com/weisyn/wager/client/core/transport"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// TokenMetadataProgramID Metaplex token metadata 程序
var TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

const (
	maxMetadataBody = 1 << 20
	ipfsGateway     = "https://ipfs.io/ipfs/"
)

// ErrMetadataNotFound mint 没有 Metaplex 元数据账户
var ErrMetadataNotFound = errors.New("token metadata not found")

// Metadata NFT 元数据
type Metadata struct {
	Mint        solana.PublicKey `json:"mint"`
	Name        string           `json:"name"`
	Symbol      string           `json:"symbol,omitempty"`
	URI         string           `json:"uri,omitempty"`
	Image       string           `json:"image,omitempty"`
	Description string           `json:"description,omitempty"`
}

// Cache 元数据缓存
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MetadataResolver 解析 NFT 元数据：链上账户 → 链下 JSON
//
// 成功结果写入缓存；同一 mint 的并发请求合并为一次获取；失败不缓存。
type MetadataResolver struct {
	conn   transport.Connection
	cache  Cache
	http   *http.Client
	group  singleflight.Group
	logger log.Logger

	fetches atomic.Int64
}

// NewMetadataResolver 创建解析器；httpClient 为 nil 时使用 10s 超时的默认客户端
func NewMetadataResolver(conn transport.Connection, cache Cache, httpClient *http.Client, logger log.Logger) *MetadataResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logimpl.NewNop()
	}
	return &MetadataResolver{
		conn:   conn,
		cache:  cache,
		http:   httpClient,
		logger: logger.With("module", "metadata"),
	}
}

// MetadataAddress Metaplex 元数据 PDA
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), TokenMetadataProgramID.Bytes(), mint.Bytes()},
		TokenMetadataProgramID,
	)
	return addr, err
}

// Fetches 实际获取次数（缓存未命中且不与并发请求合并）
func (r *MetadataResolver) Fetches() int64 {
	return r.fetches.Load()
}

// Resolve 返回 mint 的元数据
func (r *MetadataResolver) Resolve(ctx context.Context, mint solana.PublicKey) (*Metadata, error) {
	key := mint.String()
	if md, ok := r.cached(ctx, key); ok {
		return md, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// 合并后的获取不受首个调用方取消的影响
		ctx := context.WithoutCancel(ctx)
		if md, ok := r.cached(ctx, key); ok {
			return md, nil
		}
		r.fetches.Add(1)
		md, err := r.fetch(ctx, mint)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if raw, err := json.Marshal(md); err == nil {
				if err := r.cache.Set(ctx, key, raw); err != nil {
					r.logger.Warnf("cache metadata for %s: %v", key, err)
				}
			}
		}
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	md := *v.(*Metadata)
	return &md, nil
}

func (r *MetadataResolver) cached(ctx context.Context, key string) (*Metadata, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, false
	}
	return &md, true
}

func (r *MetadataResolver) fetch(ctx context.Context, mint solana.PublicKey) (*Metadata, error) {
	addr, err := MetadataAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata address: %w", err)
	}
	acc, err := r.conn.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, transport.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, mint)
		}
		return nil, fmt.Errorf("load metadata account: %w", err)
	}

	md, err := DecodeMetadataAccount(acc.Data)
	if err != nil {
		return nil, err
	}
	md.Mint = mint

	if md.URI == "" {
		return md, nil
	}
	off, err := r.fetchJSON(ctx, md.URI)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata json for %s: %w", mint, err)
	}
	if off.Name != "" {
		md.Name = off.Name
	}
	md.Image = off.Image
	md.Description = off.Description
	return md, nil
}

type offchainMetadata struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

func (r *MetadataResolver) fetchJSON(ctx context.Context, uri string) (*offchainMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL(uri), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var out offchainMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode metadata json: %w", err)
	}
	return &out, nil
}

func gatewayURL(uri string) string {
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return ipfsGateway + strings.TrimPrefix(rest, "ipfs/")
	}
	return uri
}

// DecodeMetadataAccount 解码 Metaplex 元数据账户的 name/symbol/uri
func DecodeMetadataAccount(data []byte) (*Metadata, error) {
	dec := bin.NewBorshDecoder(data)
	// key(1) + update_authority(32) + mint(32)
	if err := dec.SkipBytes(1 + 32 + 32); err != nil {
		return nil, fmt.Errorf("decode metadata header: %w", err)
	}
	name, err := readBorshString(dec)
	if err != nil {
		return nil, fmt.Errorf("decode metadata name: %w", err)
	}
	symbol, err := readBorshString(dec)
	if err != nil {
		return nil, fmt.Errorf("decode metadata symbol: %w", err)
	}
	uri, err := readBorshString(dec)
	if err != nil {
		return nil, fmt.Errorf("decode metadata uri: %w", err)
	}
	return &Metadata{Name: name, Symbol: symbol, URI: uri}, nil
}

// readBorshString 读取 u32 长度前缀字符串，去掉 Metaplex 的 NUL 填充
func readBorshString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return "", err
	}
	if int(n) > dec.Remaining() {
		return "", fmt.Errorf("string length %d exceeds remaining %d bytes", n, dec.Remaining())
	}
	b, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00 "), nil
}
