package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/challenge"
	"github.com/weisyn/wager/client/core/config"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/core/wallet"
	"github.com/weisyn/wager/client/pkg/deeplink"
	"github.com/weisyn/wager/internal/app"
)

// keystoreSubdir 配置目录下的 keystore 子目录
const keystoreSubdir = "keystore"

var (
	accountLabel  string
	airdropAmount string
	exportConfirm bool
)

// accountCmd 账户管理命令
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "账户管理",
	Long:  "查看当前账户、余额与代币账户，管理加密 keystore",
}

// accountAddressCmd 当前账户地址
var accountAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "显示当前账户地址",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			return formatter.Print(map[string]interface{}{
				"address": rt.Service.Account().String(),
				"cluster": string(rt.Profile.Cluster),
				"signer":  string(rt.Signer.Type()),
			})
		})
	},
}

// accountBalanceCmd 查询余额
var accountBalanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "查询 SOL 余额",
	Long:  "查询指定地址的 SOL 余额 (不指定则查询当前账户)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var addr solana.PublicKey
		if len(args) > 0 {
			a, err := parseAddress("address", args[0])
			if err != nil {
				return err
			}
			addr = a
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			if addr.IsZero() {
				addr = rt.Service.Account()
			}
			bal, err := rt.Service.Balance(ctx, addr)
			if err != nil {
				return err
			}
			return formatter.Print(map[string]interface{}{
				"address":  addr.String(),
				"lamports": bal.Uint64(),
				"sol":      bal.SOL(),
			})
		})
	},
}

// accountTokensCmd 代币账户列表
var accountTokensCmd = &cobra.Command{
	Use:   "tokens [owner]",
	Short: "列出 SPL 代币账户",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var owner solana.PublicKey
		if len(args) > 0 {
			o, err := parseAddress("owner", args[0])
			if err != nil {
				return err
			}
			owner = o
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			list, err := rt.Service.TokenAccounts(ctx, owner)
			if err != nil {
				return err
			}
			rows := make([]map[string]interface{}, 0, len(list))
			for _, tb := range list {
				rows = append(rows, tokenRow(tb))
			}
			return formatter.Print(rows)
		})
	},
}

// accountImportTokenCmd 为当前账户创建某个代币的关联代币账户
var accountImportTokenCmd = &cobra.Command{
	Use:   "import-token <mint>",
	Short: "添加代币：为当前账户创建 mint 的关联代币账户",
	Long: `计算当前账户在 mint 下的关联代币账户 (ATA)，尚未创建时提交创建交易，
由当前账户支付租金。ATA 已存在时只显示其余额。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseAddress("mint", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			existing, res, err := importToken(ctx, rt.Service, mint)
			if err != nil {
				return err
			}
			if res != nil {
				return printResult(rt, res)
			}
			row := tokenRow(*existing)
			row["exists"] = true
			if err := formatter.Print(row); err != nil {
				return err
			}
			formatter.PrintInfo(fmt.Sprintf("代币账户已存在: %s", existing.Address))
			return nil
		})
	},
}

// importToken ATA 已存在时返回其余额，否则提交创建交易
func importToken(ctx context.Context, svc *challenge.Service, mint solana.PublicKey) (*challenge.TokenBalance, *submit.Result, error) {
	owner := svc.Account()
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, nil, err
	}
	list, err := svc.TokenAccounts(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	for i := range list {
		if list[i].Address == ata {
			return &list[i], nil, nil
		}
	}
	res, err := svc.CreateTokenAccount(ctx, mint, owner)
	return nil, res, err
}

// accountAirdropCmd 申请测试币
var accountAirdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "申请 devnet 测试币",
	RunE: func(cmd *cobra.Command, args []string) error {
		var amount builder.Lamports
		if airdropAmount != "" {
			a, err := builder.ParseSOL(airdropAmount)
			if err != nil {
				return err
			}
			amount = a
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			sig, err := rt.Service.Airdrop(ctx, amount)
			if err != nil {
				return err
			}
			if err := formatter.Print(map[string]interface{}{
				"signature": sig.String(),
				"explorer":  deeplink.ExplorerURL(rt.Profile.ExplorerURL, deeplink.ExplorerTx, sig.String(), rt.Profile.Cluster),
			}); err != nil {
				return err
			}
			formatter.PrintSuccess("airdrop 已提交")
			return nil
		})
	},
}

// accountImportCmd 导入 keygen 文件为加密 keystore
var accountImportCmd = &cobra.Command{
	Use:   "import <keygen-file>",
	Short: "导入 solana-keygen 密钥为加密 keystore",
	Long:  "用口令加密 solana-keygen JSON 密钥并保存到配置目录，随后当前 profile 改用该 keystore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := selectedProfile()
		if err != nil {
			return err
		}

		password, err := promptPassword("Keystore 口令")
		if err != nil {
			return err
		}
		if _, set := os.LookupEnv(PasswordEnv); !set {
			again, err := promptPassword("再次输入口令")
			if err != nil {
				return err
			}
			if again != password {
				return errors.New("两次输入的口令不一致")
			}
		}

		dir := filepath.Join(profileMgr.ConfigDir(), keystoreSubdir)
		path, err := wallet.ImportKeygenFile(args[0], dir, password, accountLabel)
		if err != nil {
			return err
		}
		if err := profile.Set("keystore_path", path); err != nil {
			return err
		}
		if err := profileMgr.SaveProfile(profile); err != nil {
			return err
		}

		if err := formatter.Print(map[string]interface{}{
			"profile":  profile.Name,
			"keystore": path,
		}); err != nil {
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("Profile %s 已使用新的 keystore", profile.Name))
		return nil
	},
}

// accountExportKeyCmd 导出原始私钥
var accountExportKeyCmd = &cobra.Command{
	Use:   "export-key",
	Short: "导出 base58 私钥 (需要 allow_raw_key_export)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !exportConfirm {
			return errors.New("导出私钥需要 --i-understand")
		}
		o := runtimeOptions()
		o.NoPrompt = true
		return withRuntime(cmd, o, func(ctx context.Context, rt *app.Runtime) error {
			raw, ok := rt.Signer.(*wallet.RawKeySigner)
			if !ok {
				return wallet.ErrRawKeyDisabled
			}
			formatter.PrintWarning("私钥可完全控制该账户，请勿泄露")
			return formatter.Print(map[string]interface{}{
				"address":     raw.ActiveAccount().String(),
				"private_key": raw.ExportRawKey(),
			})
		})
	},
}

// selectedProfile --profile 或 --mainnet/--devnet 指定的 profile，都没有时为当前 profile
func selectedProfile() (*config.Profile, error) {
	name := globalFlags.Profile
	if o := runtimeOptions(); name == "" && o.Cluster != "" {
		name = string(o.Cluster)
	}
	if name != "" {
		return profileMgr.GetProfile(name)
	}
	return profileMgr.GetCurrentProfile()
}

func tokenRow(tb challenge.TokenBalance) map[string]interface{} {
	return map[string]interface{}{
		"address":  tb.Address.String(),
		"mint":     tb.Mint.String(),
		"amount":   tb.Amount,
		"decimals": tb.Decimals,
		"balance":  tb.UIAmount,
	}
}

func init() {
	accountAirdropCmd.Flags().StringVar(&airdropAmount, "amount", "", "SOL 数量 (默认 1)")
	accountImportCmd.Flags().StringVar(&accountLabel, "label", "", "keystore 标签")
	accountExportKeyCmd.Flags().BoolVar(&exportConfirm, "i-understand", false, "确认导出私钥")

	accountCmd.AddCommand(accountAddressCmd)
	accountCmd.AddCommand(accountBalanceCmd)
	accountCmd.AddCommand(accountTokensCmd)
	accountCmd.AddCommand(accountImportTokenCmd)
	accountCmd.AddCommand(accountAirdropCmd)
	accountCmd.AddCommand(accountImportCmd)
	accountCmd.AddCommand(accountExportKeyCmd)
}
