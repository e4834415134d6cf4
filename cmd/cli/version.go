package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/wager/client/core/output"
	"github.com/weisyn/wager/internal/app/version"
)

// versionCmd 版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatter.Format() == output.FormatText {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			return nil
		}
		return formatter.Print(version.GetBuildInfo())
	},
}
