// Package config provides profile management functionality for client configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/weisyn/wager/pkg/types"
)

// ErrProfileNotFound profile 不存在
var ErrProfileNotFound = errors.New("profile not found")

// Profile CLI配置Profile
type Profile struct {
	Name    string  `json:"name"`    // Profile名称: devnet/mainnet
	Cluster Cluster `json:"cluster"` // 集群

	// RPC 端点(按优先级排序)，读请求在端点间故障转移
	Endpoints  []EndpointConfig `json:"endpoints"`
	Commitment string           `json:"commitment,omitempty"`

	// 密钥：keygen 文件与加密 keystore 二选一，keystore 优先
	KeypairPath  string `json:"keypair_path,omitempty"`
	KeystorePath string `json:"keystore_path,omitempty"`

	// SignerMode prompt（默认，签名前交互确认）或 keypair（直接签名）
	SignerMode SignerMode `json:"signer_mode,omitempty"`

	// AllowRawKeyExport 允许无确认签名与导出私钥
	AllowRawKeyExport bool `json:"allow_raw_key_export"`

	// 读请求网络配置
	Timeout             Duration `json:"timeout"`
	RetryAttempts       int      `json:"retry_attempts"`
	RetryBackoff        Duration `json:"retry_backoff"`
	HealthCheckInterval Duration `json:"health_check_interval"`

	Submission SubmissionConfig `json:"submission"`
	Programs   ProgramConfig    `json:"programs"`

	MetadataCacheLife Duration `json:"metadata_cache_life"`
	ExplorerURL       string   `json:"explorer_url"`

	HTTP HTTPConfig           `json:"http"`
	Log  *types.UserLogConfig `json:"log,omitempty"`
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	Name     string `json:"name"`     // 端点名称
	Priority int    `json:"priority"` // 优先级(数字越小越优先)
	URL      string `json:"url"`      // JSON-RPC地址
}

// SubmissionConfig 交易提交配置
type SubmissionConfig struct {
	MaxAttempts   int      `json:"max_attempts"`
	RetryBackoff  Duration `json:"retry_backoff"`
	SkipPreflight *bool    `json:"skip_preflight,omitempty"`
}

// SkipPreflightOrDefault 未设置时跳过预检
func (s SubmissionConfig) SkipPreflightOrDefault() bool {
	if s.SkipPreflight == nil {
		return true
	}
	return *s.SkipPreflight
}

// ProgramConfig 链上程序 ID
type ProgramConfig struct {
	Challenge    string `json:"challenge_program"`
	NftChallenge string `json:"nft_challenge_program"`
}

// HTTPConfig 本地 HTTP 服务配置
type HTTPConfig struct {
	Listen  string `json:"listen"`
	Metrics bool   `json:"metrics"`
}

// Duration 时间duration(支持JSON序列化)
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}

// Std 转为 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ProfileManager Profile管理器
type ProfileManager struct {
	configDir      string
	currentProfile string
	profiles       map[string]*Profile
}

// DefaultConfigDir 默认配置目录 ~/.wager
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".wager"), nil
}

// NewProfileManager 创建Profile管理器
func NewProfileManager(configDir string) (*ProfileManager, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	// 确保配置目录存在
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	pm := &ProfileManager{
		configDir: configDir,
		profiles:  make(map[string]*Profile),
	}

	if err := pm.loadProfiles(); err != nil {
		return nil, err
	}

	// 如果没有当前profile,使用默认
	if err := pm.loadCurrentProfile(); err != nil {
		pm.currentProfile = string(Devnet)
	}

	return pm, nil
}

// ConfigDir 配置目录
func (pm *ProfileManager) ConfigDir() string {
	return pm.configDir
}

// loadProfiles 加载所有profiles
func (pm *ProfileManager) loadProfiles() error {
	profilesDir := filepath.Join(pm.configDir, "profiles")

	// 如果profiles目录不存在,创建默认profiles
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		if err := os.MkdirAll(profilesDir, 0700); err != nil {
			return fmt.Errorf("create profiles dir: %w", err)
		}
		if err := pm.createDefaultProfiles(); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(profilesDir)
	if err != nil {
		return fmt.Errorf("read profiles dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isJSONFile(entry.Name()) {
			continue
		}

		profilePath := filepath.Join(profilesDir, entry.Name())
		profile, err := pm.loadProfile(profilePath)
		if err != nil {
			// 记录错误但继续
			fmt.Fprintf(os.Stderr, "Warning: failed to load profile %s: %v\n", entry.Name(), err)
			continue
		}

		pm.profiles[profile.Name] = profile
	}

	return nil
}

// loadProfile 加载单个profile
func (pm *ProfileManager) loadProfile(filePath string) (*Profile, error) {
	//nolint:gosec // G304: filePath 来自配置目录，路径安全可控
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	pm.applyDefaults(&profile)
	return &profile, nil
}

// applyDefaults 填充未设置的字段
func (pm *ProfileManager) applyDefaults(p *Profile) {
	if p.Cluster == "" {
		p.Cluster = Devnet
	}
	if p.Commitment == "" {
		p.Commitment = "confirmed"
	}
	if p.KeystorePath == "" && p.KeypairPath == "" {
		p.KeystorePath = filepath.Join(pm.configDir, "keystores", p.Name+".json")
	}
	if p.SignerMode == "" {
		p.SignerMode = SignerModePrompt
	}
	if p.Timeout == 0 {
		p.Timeout = Duration(30 * time.Second)
	}
	if p.RetryAttempts == 0 {
		p.RetryAttempts = 3
	}
	if p.RetryBackoff == 0 {
		p.RetryBackoff = Duration(time.Second)
	}
	if p.Submission.MaxAttempts == 0 {
		p.Submission.MaxAttempts = 3
	}
	if p.Submission.RetryBackoff == 0 {
		p.Submission.RetryBackoff = Duration(time.Second)
	}
	if p.MetadataCacheLife == 0 {
		p.MetadataCacheLife = Duration(12 * time.Hour)
	}
	if p.ExplorerURL == "" {
		p.ExplorerURL = "https://solscan.io"
	}
	if p.HTTP.Listen == "" {
		p.HTTP.Listen = "127.0.0.1:8089"
	}
}

// loadCurrentProfile 加载当前profile
func (pm *ProfileManager) loadCurrentProfile() error {
	currentFile := filepath.Join(pm.configDir, "current")
	//nolint:gosec // G304: currentFile 来自配置目录，路径安全可控
	data, err := os.ReadFile(currentFile)
	if err != nil {
		return err
	}

	pm.currentProfile = string(data)
	return nil
}

// saveCurrentProfile 保存当前profile
func (pm *ProfileManager) saveCurrentProfile() error {
	currentFile := filepath.Join(pm.configDir, "current")
	return os.WriteFile(currentFile, []byte(pm.currentProfile), 0600)
}

// DefaultProfiles 内置的 devnet/mainnet profiles
func DefaultProfiles() []*Profile {
	return []*Profile{
		{
			Name:    string(Devnet),
			Cluster: Devnet,
			Endpoints: []EndpointConfig{
				{Name: "devnet-public", Priority: 1, URL: "https://api.devnet.solana.com"},
			},
			Timeout:             Duration(30 * time.Second),
			RetryAttempts:       3,
			RetryBackoff:        Duration(time.Second),
			HealthCheckInterval: Duration(30 * time.Second),
			Submission: SubmissionConfig{
				MaxAttempts:  3,
				RetryBackoff: Duration(time.Second),
			},
			HTTP: HTTPConfig{Listen: "127.0.0.1:8089", Metrics: true},
		},
		{
			Name:    string(Mainnet),
			Cluster: Mainnet,
			Endpoints: []EndpointConfig{
				{Name: "mainnet-public", Priority: 1, URL: "https://api.mainnet-beta.solana.com"},
			},
			Commitment:          "finalized",
			Timeout:             Duration(60 * time.Second),
			RetryAttempts:       5,
			RetryBackoff:        Duration(2 * time.Second),
			HealthCheckInterval: Duration(60 * time.Second),
			Submission: SubmissionConfig{
				MaxAttempts:  3,
				RetryBackoff: Duration(2 * time.Second),
			},
			HTTP: HTTPConfig{Listen: "127.0.0.1:8089"},
		},
	}
}

// createDefaultProfiles 创建默认profiles，devnet 为当前profile
func (pm *ProfileManager) createDefaultProfiles() error {
	for _, profile := range DefaultProfiles() {
		if err := pm.SaveProfile(profile); err != nil {
			return err
		}
	}

	pm.currentProfile = string(Devnet)
	return pm.saveCurrentProfile()
}

// GetProfile 获取指定profile
func (pm *ProfileManager) GetProfile(name string) (*Profile, error) {
	profile, exists := pm.profiles[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return profile, nil
}

// GetCurrentProfile 获取当前profile
func (pm *ProfileManager) GetCurrentProfile() (*Profile, error) {
	return pm.GetProfile(pm.currentProfile)
}

// CurrentName 当前profile名称
func (pm *ProfileManager) CurrentName() string {
	return pm.currentProfile
}

// ListProfiles 列出所有profiles（按名称排序）
func (pm *ProfileManager) ListProfiles() []string {
	names := make([]string, 0, len(pm.profiles))
	for name := range pm.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveProfile 保存profile
func (pm *ProfileManager) SaveProfile(profile *Profile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	pm.applyDefaults(profile)
	if err := profile.Validate(); err != nil {
		return err
	}

	profilesDir := filepath.Join(pm.configDir, "profiles")
	if err := os.MkdirAll(profilesDir, 0700); err != nil {
		return fmt.Errorf("create profiles dir: %w", err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	profilePath := filepath.Join(profilesDir, profile.Name+".json")
	if err := os.WriteFile(profilePath, data, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	pm.profiles[profile.Name] = profile
	return nil
}

// SwitchProfile 切换profile
func (pm *ProfileManager) SwitchProfile(name string) error {
	if _, exists := pm.profiles[name]; !exists {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	pm.currentProfile = name
	return pm.saveCurrentProfile()
}

// DeleteProfile 删除profile
func (pm *ProfileManager) DeleteProfile(name string) error {
	// 不能删除当前profile
	if name == pm.currentProfile {
		return fmt.Errorf("cannot delete current profile")
	}

	profilePath := filepath.Join(pm.configDir, "profiles", name+".json")
	if err := os.Remove(profilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete profile file: %w", err)
	}

	delete(pm.profiles, name)
	return nil
}

// isJSONFile 检查是否是JSON文件
func isJSONFile(name string) bool {
	return filepath.Ext(name) == ".json"
}
