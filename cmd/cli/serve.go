package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	apihttp "github.com/weisyn/wager/internal/api/http"
	"github.com/weisyn/wager/internal/app"
)

var serveListen string

// serveCmd 本地 HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动本地 HTTP API",
	Long: `启动本地 HTTP API，与 CLI 共用同一套挑战门面

  GET  /healthz
  GET  /v1/link?url=<深链>
  GET  /v1/challenges/:address[/status|/offerings]
  POST /v1/challenges/:address/status/refresh
  GET  /v1/offerings/:mint/metadata
  POST /v1/intents
  GET  /v1/account/balance | /v1/account/tokens
  POST /v1/account/airdrop
  GET  /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := runtimeOptions()
		o.Listen = serveListen

		var srv *apihttp.Server
		fxApp := app.NewApp(o, fx.Populate(&srv))
		if err := fxApp.Err(); err != nil {
			return err
		}

		startCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		if err := fxApp.Start(startCtx); err != nil {
			return err
		}
		formatter.PrintSuccess(fmt.Sprintf("HTTP API 已启动: http://%s", srv.Addr()))

		sig := <-fxApp.Done()
		formatter.PrintInfo(fmt.Sprintf("收到信号 %s，正在关闭", sig))

		stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelStop()
		return fxApp.Stop(stopCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "监听地址 (默认使用 profile 中的 http.listen)")
}
