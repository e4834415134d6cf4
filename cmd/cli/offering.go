package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/internal/app"
)

var (
	offeringMetadata bool
	offeringSOL      string
	offeringMint     string
	offeringCount    uint64
)

// offeringCmd offering 管理命令
var offeringCmd = &cobra.Command{
	Use:   "offering",
	Short: "Offering管理",
	Long:  "查看、添加、撤回 NFT 挑战上的 SOL / NFT offering",
}

// offeringListCmd 列出 offering
var offeringListCmd = &cobra.Command{
	Use:   "list <challenge>",
	Short: "列出挑战上的 offering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			list, err := rt.Service.Offerings(ctx, ch, offeringMetadata)
			if err != nil {
				return err
			}
			rows := make([]map[string]interface{}, 0, len(list))
			for _, o := range list {
				mint := ""
				if o.Mint != nil {
					mint = o.Mint.String()
				}
				rows = append(rows, map[string]interface{}{
					"address":   o.Address.String(),
					"name":      o.DisplayName(),
					"authority": o.Authority.String(),
					"amount":    o.Amount,
					"mint":      mint,
					"escrowed":  o.IsEscrowed,
				})
			}
			if len(rows) == 0 {
				formatter.PrintInfo("该挑战没有 offering")
			}
			return formatter.Print(rows)
		})
	},
}

// offeringAddCmd 添加 offering
var offeringAddCmd = &cobra.Command{
	Use:   "add <challenge>",
	Short: "添加 offering",
	Long: `添加 SOL 或 NFT offering

  wager offering add <challenge> --sol 0.5
  wager offering add <challenge> --mint <mint> [--count 1]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		if (offeringSOL == "") == (offeringMint == "") {
			return errors.New("需要且只能指定 --sol 或 --mint 之一")
		}

		var intent builder.Intent
		if offeringSOL != "" {
			amount, err := builder.ParseSOL(offeringSOL)
			if err != nil {
				return err
			}
			intent, err = builder.NewAddSolOffering(ch, amount)
			if err != nil {
				return err
			}
		} else {
			mint, err := parseAddress("mint", offeringMint)
			if err != nil {
				return err
			}
			intent, err = builder.NewAddNftOffering(ch, mint, offeringCount)
			if err != nil {
				return err
			}
		}

		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.Submit(ctx, intent)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// offeringRemoveCmd 撤回 offering
var offeringRemoveCmd = &cobra.Command{
	Use:   "remove <challenge> <offering>",
	Short: "撤回 offering",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := parseAddress("challenge", args[0])
		if err != nil {
			return err
		}
		off, err := parseAddress("offering", args[1])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Service.RemoveOffering(ctx, ch, off)
			if err != nil {
				return err
			}
			return printResult(rt, res)
		})
	},
}

// offeringShowCmd NFT 元数据
var offeringShowCmd = &cobra.Command{
	Use:   "show <mint>",
	Short: "显示 NFT 元数据",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := parseAddress("mint", args[0])
		if err != nil {
			return err
		}
		return withRuntime(cmd, runtimeOptions(), func(ctx context.Context, rt *app.Runtime) error {
			md, err := rt.Resolver.Resolve(ctx, mint)
			if err != nil {
				return err
			}
			return formatter.Print(map[string]interface{}{
				"mint":        md.Mint.String(),
				"name":        md.Name,
				"symbol":      md.Symbol,
				"uri":         md.URI,
				"image":       md.Image,
				"description": md.Description,
			})
		})
	},
}

func init() {
	offeringListCmd.Flags().BoolVar(&offeringMetadata, "metadata", false, "解析 NFT 元数据名称")
	offeringAddCmd.Flags().StringVar(&offeringSOL, "sol", "", "SOL 数量，例如 0.5")
	offeringAddCmd.Flags().StringVar(&offeringMint, "mint", "", "NFT mint 地址")
	offeringAddCmd.Flags().Uint64Var(&offeringCount, "count", 1, "NFT 数量")

	offeringCmd.AddCommand(offeringListCmd)
	offeringCmd.AddCommand(offeringAddCmd)
	offeringCmd.AddCommand(offeringRemoveCmd)
	offeringCmd.AddCommand(offeringShowCmd)
}
