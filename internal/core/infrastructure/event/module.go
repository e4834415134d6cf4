// Package event 提供事件管理功能
package event

import (
	"go.uber.org/fx"

	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Logger log.Logger `optional:"true"`
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(func(input ModuleInput) *Bus {
			return New(input.Logger)
		}),
	)
}
