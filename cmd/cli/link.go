package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/client/pkg/deeplink"
	"github.com/weisyn/wager/internal/app"
)

var (
	linkExecute bool
	linkMint    string
)

// linkCmd 深链解析与执行
var linkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "解析深链，可选直接执行",
	Long: `解析形如 https://host/?type=NFT&isMainnet=true&c=<challenge> 的深链

流程按 redeem、tx、vaultAddress、c 的顺序选择，都没有时为 wallet。
--execute 在深链指定的集群上执行该流程:
  redeem / sign           签名并提交携带的交易
  create_vault_account    为 vaultAddress 创建 --mint 的代币账户
  join                    加入挑战
  wallet                  显示余额`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := deeplink.ParseURL(args[0])
		if err != nil {
			return err
		}

		explorer := ""
		if p, err := selectedProfile(); err == nil {
			explorer = p.ExplorerURL
		}
		out := map[string]interface{}{
			"screen":      string(link.Screen()),
			"type":        link.Type,
			"cluster":     string(link.Cluster),
			"is_exchange": link.IsExchange,
		}
		if link.Challenge != "" {
			out["challenge"] = link.Challenge
			out["challenge_url"] = deeplink.ExplorerURL(explorer, deeplink.ExplorerAccount, link.Challenge, link.Cluster)
		}
		if link.VaultAddress != "" {
			out["vault_address"] = link.VaultAddress
			out["vault_account_url"] = deeplink.ExplorerURL(explorer, deeplink.ExplorerAccount, link.VaultAddress, link.Cluster)
		}
		if !linkExecute {
			return formatter.Print(out)
		}

		o := runtimeOptions()
		if o.Profile == "" && o.Cluster == "" {
			o.Cluster = link.Cluster
		}
		return withRuntime(cmd, o, func(ctx context.Context, rt *app.Runtime) error {
			res, err := executeLink(ctx, rt, link)
			if err != nil {
				return err
			}
			if res == nil {
				bal, err := rt.Service.Balance(ctx, rt.Service.Account())
				if err != nil {
					return err
				}
				out["address"] = rt.Service.Account().String()
				out["sol"] = bal.SOL()
				return formatter.Print(out)
			}
			return printResult(rt, res)
		})
	},
}

// executeLink 执行深链流程；wallet 流程不提交交易，返回 nil
func executeLink(ctx context.Context, rt *app.Runtime, link *deeplink.Link) (*submit.Result, error) {
	switch link.Screen() {
	case deeplink.ScreenRedeem:
		return rt.Service.Redeem(ctx, link.Redeem)
	case deeplink.ScreenSign:
		return rt.Service.SignRaw(ctx, link.Tx)
	case deeplink.ScreenCreateVaultAccount:
		if linkMint == "" {
			return nil, errors.New("create_vault_account 需要 --mint")
		}
		mint, err := parseAddress("mint", linkMint)
		if err != nil {
			return nil, err
		}
		vault, err := parseAddress("vaultAddress", link.VaultAddress)
		if err != nil {
			return nil, err
		}
		return rt.Service.CreateTokenAccount(ctx, mint, vault)
	case deeplink.ScreenJoin:
		ch, err := parseAddress("challenge", link.Challenge)
		if err != nil {
			return nil, err
		}
		return rt.Service.Join(ctx, link.ChallengeType, ch)
	case deeplink.ScreenWallet:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown screen %q", link.Screen())
	}
}

func init() {
	linkCmd.Flags().BoolVar(&linkExecute, "execute", false, "执行深链指定的流程")
	linkCmd.Flags().StringVar(&linkMint, "mint", "", "create_vault_account 使用的 mint")
}
