package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/weisyn/wager/client/core/transport"
	"github.com/weisyn/wager/pkg/types"
)

// Cluster Solana 集群
type Cluster string

const (
	Mainnet Cluster = "mainnet"
	Devnet  Cluster = "devnet"
)

// ParseCluster 解析集群名，接受 mainnet-beta 别名
func ParseCluster(s string) (Cluster, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "mainnet-beta":
		return Mainnet, nil
	case "devnet", "":
		return Devnet, nil
	default:
		return "", fmt.Errorf("unknown cluster %q", s)
	}
}

// ClusterFromFlag 由 isMainnet 标志得到集群
func ClusterFromFlag(isMainnet bool) Cluster {
	if isMainnet {
		return Mainnet
	}
	return Devnet
}

// SignerMode 签名模式
type SignerMode string

const (
	SignerModePrompt  SignerMode = "prompt"
	SignerModeKeypair SignerMode = "keypair"
)

// Validate 校验profile
func (p *Profile) Validate() error {
	if _, err := ParseCluster(string(p.Cluster)); err != nil {
		return err
	}
	if len(p.Endpoints) == 0 {
		return fmt.Errorf("profile %s: at least one endpoint is required", p.Name)
	}
	for _, ep := range p.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("profile %s: endpoint %q has no url", p.Name, ep.Name)
		}
	}
	switch p.SignerMode {
	case "", SignerModePrompt, SignerModeKeypair:
	default:
		return fmt.Errorf("profile %s: unknown signer mode %q", p.Name, p.SignerMode)
	}
	for _, id := range []string{p.Programs.Challenge, p.Programs.NftChallenge} {
		if id == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(id); err != nil {
			return fmt.Errorf("profile %s: invalid program id %q: %w", p.Name, id, err)
		}
	}
	if p.Submission.MaxAttempts < 0 {
		return fmt.Errorf("profile %s: max_attempts must not be negative", p.Name)
	}
	return nil
}

// ClientConfig 转换为传输层配置
func (p *Profile) ClientConfig() transport.ClientConfig {
	eps := make([]transport.EndpointConfig, 0, len(p.Endpoints))
	for _, ep := range p.Endpoints {
		eps = append(eps, transport.EndpointConfig{Name: ep.Name, Priority: ep.Priority, URL: ep.URL})
	}
	return transport.ClientConfig{
		Endpoints:           eps,
		Timeout:             p.Timeout.Std(),
		RetryAttempts:       p.RetryAttempts,
		RetryBackoff:        p.RetryBackoff.Std(),
		HealthCheckInterval: p.HealthCheckInterval.Std(),
		Commitment:          rpc.CommitmentType(p.Commitment),
	}
}

// ProgramIDs 解析程序 ID，未配置的返回零值
func (p *Profile) ProgramIDs() (challenge, nft solana.PublicKey, err error) {
	if p.Programs.Challenge != "" {
		if challenge, err = solana.PublicKeyFromBase58(p.Programs.Challenge); err != nil {
			return
		}
	}
	if p.Programs.NftChallenge != "" {
		nft, err = solana.PublicKeyFromBase58(p.Programs.NftChallenge)
	}
	return
}

// SettableKeys profile set 支持的键
var SettableKeys = []string{
	"cluster", "rpc", "commitment", "keypair_path", "keystore_path", "signer_mode",
	"allow_raw_key_export", "timeout", "max_attempts", "retry_backoff", "skip_preflight",
	"challenge_program", "nft_challenge_program", "metadata_cache_life", "explorer_url",
	"http.listen", "http.metrics", "log.level",
}

// Set 按键设置单个字段，rpc 会替换全部端点
func (p *Profile) Set(key, value string) error {
	switch key {
	case "cluster":
		c, err := ParseCluster(value)
		if err != nil {
			return err
		}
		p.Cluster = c
	case "rpc":
		p.Endpoints = nil
		for i, u := range strings.Split(value, ",") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			p.Endpoints = append(p.Endpoints, EndpointConfig{Name: fmt.Sprintf("endpoint-%d", i+1), Priority: i + 1, URL: u})
		}
	case "commitment":
		p.Commitment = value
	case "keypair_path":
		p.KeypairPath = value
		p.KeystorePath = ""
	case "keystore_path":
		p.KeystorePath = value
	case "signer_mode":
		p.SignerMode = SignerMode(value)
	case "allow_raw_key_export":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.AllowRawKeyExport = b
	case "timeout", "retry_backoff", "metadata_cache_life":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "timeout":
			p.Timeout = Duration(d)
		case "retry_backoff":
			p.Submission.RetryBackoff = Duration(d)
		default:
			p.MetadataCacheLife = Duration(d)
		}
	case "max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: must be a positive integer", key)
		}
		p.Submission.MaxAttempts = n
	case "skip_preflight":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.Submission.SkipPreflight = &b
	case "challenge_program":
		p.Programs.Challenge = value
	case "nft_challenge_program":
		p.Programs.NftChallenge = value
	case "explorer_url":
		p.ExplorerURL = strings.TrimRight(value, "/")
	case "http.listen":
		p.HTTP.Listen = value
	case "http.metrics":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.HTTP.Metrics = b
	case "log.level":
		if p.Log == nil {
			p.Log = &types.UserLogConfig{}
		}
		level := value
		p.Log.Level = &level
	default:
		return fmt.Errorf("unknown key %q (supported: %s)", key, strings.Join(SettableKeys, ", "))
	}
	return p.Validate()
}
