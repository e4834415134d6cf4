package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/output"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/pkg/deeplink"
	"github.com/weisyn/wager/internal/app"
)

// PasswordEnv 非交互环境下的 keystore 口令
const PasswordEnv = "WAGER_KEYSTORE_PASSWORD"

// GlobalFlags 全局标志
type GlobalFlags struct {
	Profile      string // Profile名称
	ConfigDir    string // 配置目录
	OutputFormat string // 输出格式
	Silent       bool   // 静默模式
	Mainnet      bool
	Devnet       bool
	RPC          string
	Keypair      string
	NoPrompt     bool // 免确认签名
}

var (
	globalFlags GlobalFlags
	profileMgr  *config.ProfileManager
	formatter   *output.Formatter
)

// exitError 结果已输出，只需要非零退出码
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "wager",
	Short: "Solana 挑战客户端",
	Long: `wager - Solana 链上挑战的命令行客户端

提供完整的挑战交互能力:
- 加入、退出、接受挑战并查询玩家状态
- 管理挑战上的 SOL / NFT offering
- 执行深链携带的预构建交易
- 管理 keystore、余额与代币账户
- 启动本地 HTTP API (serve)

交易失败会按类别给出提示，过期的 blockhash 自动重试。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.Mainnet && globalFlags.Devnet {
			return errors.New("--mainnet 与 --devnet 不能同时使用")
		}

		// 初始化配置管理器
		var err error
		profileMgr, err = config.NewProfileManager(globalFlags.ConfigDir)
		if err != nil {
			return fmt.Errorf("初始化配置: %w", err)
		}

		// 初始化输出格式化器
		format, err := output.ParseFormat(globalFlags.OutputFormat)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, os.Stdout)
		formatter.SetSilent(globalFlags.Silent)

		return nil
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// 全局标志
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.Profile, "profile", "", "使用指定的Profile (默认使用当前Profile)")
	pf.StringVar(&globalFlags.ConfigDir, "config-dir", "", "配置目录 (默认: ~/.wager)")
	pf.StringVarP(&globalFlags.OutputFormat, "output", "o", "table", "输出格式: json|pretty|table|text")
	pf.BoolVar(&globalFlags.Silent, "silent", false, "静默模式 (仅输出结果)")
	pf.BoolVar(&globalFlags.Mainnet, "mainnet", false, "使用 mainnet profile")
	pf.BoolVar(&globalFlags.Devnet, "devnet", false, "使用 devnet profile")
	pf.StringVar(&globalFlags.RPC, "rpc", "", "覆盖 RPC 端点，多个用逗号分隔")
	pf.StringVar(&globalFlags.Keypair, "keypair", "", "solana-keygen 密钥文件路径")
	pf.BoolVarP(&globalFlags.NoPrompt, "yes", "y", false, "签名前不确认 (需要 profile 开启 allow_raw_key_export)")

	// 添加子命令
	rootCmd.AddCommand(challengeCmd)
	rootCmd.AddCommand(offeringCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtimeOptions 由全局标志得到运行时选项
func runtimeOptions() app.Options {
	o := app.Options{
		ConfigDir: globalFlags.ConfigDir,
		Profile:   globalFlags.Profile,
		RPC:       globalFlags.RPC,
		Keypair:   globalFlags.Keypair,
		NoPrompt:  globalFlags.NoPrompt,
		Password:  promptPassword,
	}
	switch {
	case globalFlags.Mainnet:
		o.Cluster = config.Mainnet
	case globalFlags.Devnet:
		o.Cluster = config.Devnet
	}
	return o
}

// withRuntime 组装运行时并在命令结束后释放；Ctrl-C 取消 ctx
func withRuntime(cmd *cobra.Command, o app.Options, fn func(ctx context.Context, rt *app.Runtime) error) error {
	rt, err := app.Open(o)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, rt)
}

// promptPassword 优先读环境变量，否则在终端中掩码输入
func promptPassword(label string) (string, error) {
	if pw, ok := os.LookupEnv(PasswordEnv); ok {
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("keystore 需要口令: 请在终端中运行或设置 %s", PasswordEnv)
	}
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}
	return prompt.Run()
}

// printResult 输出提交结果；失败时返回非零退出码，用户取消不算失败
func printResult(rt *app.Runtime, res *submit.Result) error {
	data := map[string]interface{}{
		"id":       res.ID,
		"kind":     string(res.Kind),
		"success":  res.Success(),
		"attempts": res.Attempts,
	}
	if res.Success() {
		data["signature"] = res.Signature.String()
		data["explorer"] = deeplink.ExplorerURL(rt.Profile.ExplorerURL, deeplink.ExplorerTx, res.Signature.String(), rt.Profile.Cluster)
	} else {
		data["class"] = res.Class().String()
	}
	if res.Cancelled() {
		data["cancelled"] = true
	}
	if !res.Challenge.IsZero() {
		data["challenge"] = res.Challenge.String()
	}
	if err := formatter.Print(data); err != nil {
		return err
	}

	if res.Cancelled() {
		formatter.PrintInfo(res.Message())
		return nil
	}
	if !res.OK() {
		formatter.PrintError(errors.New(res.Message()))
		return &exitError{code: 2}
	}
	if res.Success() {
		formatter.PrintSuccess(res.Message())
	} else {
		formatter.PrintInfo(res.Message())
	}
	return nil
}

// parseAddress 解析位置参数中的地址
func parseAddress(name, s string) (solana.PublicKey, error) {
	pk, err := builder.ParseAddress(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", name, err)
	}
	return pk, nil
}

// challengeTypeFlag 绑定 --type
func challengeTypeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "type", "t", string(program.Fungible), "挑战类型: ft|nft|exchange")
}
