package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weisyn/wager/internal/app"
)

var (
	vaultOwner string
	txFile     string
)

// vaultCmd vault 相关命令
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Vault 代币账户",
}

// vaultCreateTokenAccountCmd 创建关联代币账户
var vaultCreateTokenAccountCmd = &cobra.Command{
	Use:   "create-token-account <mint>",
	Short: "为 owner 创建关联代币账户",
	Long:  "为 --owner (默认当前账户) 创建 mint 的关联代币账户，由当前账户支付租金",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseAddress("mint", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			owner := rt.Service.Account()
			if vaultOwner != "" {
				if owner, err = parseAddress("owner", vaultOwner); err != nil {
					return err
				}
			}
			res, err := rt.Service.CreateTokenAccount(ctx, mint, owner)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// txCmd 预构建交易命令
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "执行预构建交易",
	Long:  "签名并提交 base64 编码的预构建交易，交易可来自参数、--file 或标准输入 (-)",
}

// txRedeemCmd 兑换
var txRedeemCmd = &cobra.Command{
	Use:   "redeem [base64-tx|-]",
	Short: "签名并提交兑换交易",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoded, err := readEncodedTx(args)
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.Redeem(ctx, encoded)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// txSignCmd 签名
var txSignCmd = &cobra.Command{
	Use:   "sign [base64-tx|-]",
	Short: "签名并提交任意交易",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoded, err := readEncodedTx(args)
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.SignRaw(ctx, encoded)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// readEncodedTx 参数优先，其次 --file，"-" 读标准输入
func readEncodedTx(args []string) (string, error) {
	var data []byte
	var err error
	switch {
	case len(args) == 1 && args[0] != "-":
		return strings.TrimSpace(args[0]), nil
	case len(args) == 1:
		data, err = io.ReadAll(os.Stdin)
	case txFile != "":
		data, err = os.ReadFile(txFile)
	default:
		return "", errors.New("需要 base64 交易参数、--file 或 -")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func init() {
	vaultCreateTokenAccountCmd.Flags().StringVar(&vaultOwner, "owner", "", "代币账户 owner (默认当前账户)")
	vaultCmd.AddCommand(vaultCreateTokenAccountCmd)

	for _, c := range []*cobra.Command{txRedeemCmd, txSignCmd} {
		c.Flags().StringVarP(&txFile, "file", "f", "", "从文件读取 base64 交易")
		txCmd.AddCommand(c)
	}
}
