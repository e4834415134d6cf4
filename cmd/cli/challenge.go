package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/pkg/deeplink"
	"github.com/weisyn/wager/internal/app"
)

var (
	challengeType    string
	challengeRefresh bool
)

// challengeCmd 挑战相关命令
var challengeCmd = &cobra.Command{
	Use:     "challenge",
	Aliases: []string{"c"},
	Short:   "挑战操作",
	Long:    "加入、退出、接受挑战，查询玩家状态与挑战信息",
}

// challengeJoinCmd 加入挑战
var challengeJoinCmd = &cobra.Command{
	Use:   "join <challenge>",
	Short: "加入挑战",
	Long:  "构建并提交加入交易。已经加入过的挑战视为成功。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := program.ParseChallengeType(challengeType)
		if err != nil {
			return err
		}
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.Join(ctx, ct, ch)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// challengeLeaveCmd 退出挑战
var challengeLeaveCmd = &cobra.Command{
	Use:   "leave <challenge>",
	Short: "退出挑战",
	Long:  "构建并提交退出交易，成功后从链上重新读取玩家状态",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := program.ParseChallengeType(challengeType)
		if err != nil {
			return err
		}
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.Leave(ctx, ct, ch)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// challengeAcceptCmd 接受挑战
var challengeAcceptCmd = &cobra.Command{
	Use:   "accept <challenge>",
	Short: "接受挑战 (NFT)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.Accept(ctx, ch)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// challengeStatusCmd 查询玩家状态
var challengeStatusCmd = &cobra.Command{
	Use:   "status <challenge>",
	Short: "查询当前账户在挑战中的状态",
	Long:  "输出 NotInGame / Accepted / Joined。--refresh 忽略本地投影，直接读链。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := program.ParseChallengeType(challengeType)
		if err != nil {
			return err
		}
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			query := rt.Service.Status
			if challengeRefresh {
				query = rt.Service.RefreshStatus
			}
			st, err := query(ctx, ct, ch)
			if err != nil {
				return err
			}
			return formatter.Print(map[string]interface{}{
				"challenge": ch.String(),
				"player":    rt.Service.Account().String(),
				"type":      string(ct),
				"status":    st.String(),
			})
		})
	},
}

// challengeInfoCmd 挑战账户信息
var challengeInfoCmd = &cobra.Command{
	Use:   "info <challenge>",
	Short: "显示挑战账户信息",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := program.ParseChallengeType(challengeType)
		if err != nil {
			return err
		}
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			info, err := rt.Service.Info(ctx, ct, ch)
			if err != nil {
				return err
			}
			return formatter.Print(map[string]interface{}{
				"address":     info.Address.String(),
				"type":        string(info.Type),
				"authority":   info.Authority.String(),
				"entry_fee":   info.EntryFee,
				"rake_bps":    info.RakeBps,
				"players":     info.Players,
				"max_players": info.MaxPlayers,
				"full":        info.IsFull(),
				"state":       info.State.String(),
				"explorer":    deeplink.ExplorerURL(rt.Profile.ExplorerURL, deeplink.ExplorerAccount, ch.String(), rt.Profile.Cluster),
			})
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{challengeJoinCmd, challengeLeaveCmd, challengeStatusCmd, challengeInfoCmd} {
		challengeTypeFlag(c, &challengeType)
	}
	challengeStatusCmd.Flags().BoolVar(&challengeRefresh, "refresh", false, "从链上重新读取状态")

	challengeCmd.AddCommand(challengeJoinCmd)
	challengeCmd.AddCommand(challengeLeaveCmd)
	challengeCmd.AddCommand(challengeAcceptCmd)
	challengeCmd.AddCommand(challengeStatusCmd)
	challengeCmd.AddCommand(challengeInfoCmd)
}
