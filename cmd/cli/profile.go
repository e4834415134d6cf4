package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/weisyn/wager/client/core/config"
)

var profileFrom string

// profileCmd Profile管理命令
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile管理",
	Long:  "管理配置Profile,支持 devnet / mainnet 等多环境切换",
}

// profileListCmd 列出所有profiles
var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有profiles",
	Long:  "列出所有可用的配置Profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		current := profileMgr.CurrentName()

		var result []map[string]interface{}
		for _, name := range profileMgr.ListProfiles() {
			profile, err := profileMgr.GetProfile(name)
			if err != nil {
				continue
			}
			endpoint := ""
			if len(profile.Endpoints) > 0 {
				endpoint = profile.Endpoints[0].URL
			}
			result = append(result, map[string]interface{}{
				"name":     name,
				"cluster":  string(profile.Cluster),
				"endpoint": endpoint,
				"current":  name == current,
			})
		}

		return formatter.Print(result)
	},
}

// profileShowCmd 显示profile详情
var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "显示profile详情",
	Long:  "显示指定profile的详细配置(不指定则显示当前profile)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var profile *config.Profile
		var err error

		if len(args) > 0 {
			profile, err = profileMgr.GetProfile(args[0])
		} else {
			profile, err = profileMgr.GetCurrentProfile()
		}

		if err != nil {
			formatter.PrintError(err)
			return err
		}

		return formatter.Print(profile)
	},
}

// profileUseCmd 切换profile
var profileUseCmd = &cobra.Command{
	Use:     "use <name>",
	Aliases: []string{"switch"},
	Short:   "切换profile",
	Long:    "切换到指定的配置Profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if err := profileMgr.SwitchProfile(name); err != nil {
			formatter.PrintError(err)
			return err
		}

		formatter.PrintSuccess(fmt.Sprintf("已切换到 profile '%s'", name))

		profile, _ := profileMgr.GetProfile(name)
		return formatter.Print(map[string]interface{}{
			"name":    name,
			"cluster": string(profile.Cluster),
		})
	},
}

// profileCurrentCmd 显示当前profile
var profileCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "显示当前profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := profileMgr.GetCurrentProfile()
		if err != nil {
			formatter.PrintError(err)
			return err
		}

		return formatter.Print(map[string]interface{}{
			"name":    profile.Name,
			"cluster": string(profile.Cluster),
		})
	},
}

// profileSetCmd 修改profile字段
var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "修改profile配置项",
	Long: "修改 --profile 指定的 (默认当前) profile 的单个配置项\n\n可用的键:\n  " +
		strings.Join(config.SettableKeys, "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := selectedProfile()
		if err != nil {
			return err
		}
		if err := profile.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := profile.Validate(); err != nil {
			return err
		}
		if err := profileMgr.SaveProfile(profile); err != nil {
			return fmt.Errorf("保存 profile 失败: %w", err)
		}

		formatter.PrintSuccess(fmt.Sprintf("Profile '%s': %s = %s", profile.Name, args[0], args[1]))
		return nil
	},
}

// profileCreateCmd 以已有profile为模板创建
var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "创建新profile",
	Long:  "复制 --from 指定的 profile (默认 devnet) 为新的 profile，之后用 profile set 修改",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := profileMgr.GetProfile(name); err == nil {
			return fmt.Errorf("profile '%s' 已存在", name)
		}

		base, err := profileMgr.GetProfile(profileFrom)
		if err != nil {
			return err
		}
		profile, err := cloneProfile(base)
		if err != nil {
			return err
		}
		profile.Name = name
		if err := profileMgr.SaveProfile(profile); err != nil {
			return fmt.Errorf("保存 profile 失败: %w", err)
		}

		formatter.PrintSuccess(fmt.Sprintf("Profile '%s' 已创建", name))
		return formatter.Print(profile)
	},
}

// profileDeleteCmd 删除profile
var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "删除profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == profileMgr.CurrentName() {
			return fmt.Errorf("不能删除当前正在使用的 profile")
		}

		if !globalFlags.NoPrompt {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("确认删除 profile '%s'", name),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					formatter.PrintInfo("取消删除")
					return nil
				}
				return err
			}
		}

		if err := profileMgr.DeleteProfile(name); err != nil {
			return fmt.Errorf("删除 profile 失败: %w", err)
		}

		formatter.PrintSuccess(fmt.Sprintf("Profile '%s' 已删除", name))
		return nil
	},
}

// cloneProfile 深拷贝
func cloneProfile(p *config.Profile) (*config.Profile, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out config.Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func init() {
	profileCreateCmd.Flags().StringVar(&profileFrom, "from", string(config.Devnet), "作为模板的 profile")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileCurrentCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}
