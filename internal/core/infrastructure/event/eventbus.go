// 基于asaskevich/EventBus的事件总线实现

package event

import (
	"fmt"

	evbus "github.com/asaskevich/EventBus"

	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// Bus 进程内事件总线
//
// 订阅函数的参数类型必须与发布的载荷一致，否则 EventBus 会在反射调用时 panic；
// 因此业务代码应使用 PublishSubmission / SubscribeSubmissions 等带类型的方法。
// 同步订阅者在总线锁内执行，不能在回调中再次发布事件；需要级联发布时使用异步订阅。
type Bus struct {
	bus    evbus.Bus
	logger log.Logger
}

// New 创建事件总线
func New(logger log.Logger) *Bus {
	return &Bus{bus: evbus.New(), logger: logger}
}

// Subscribe 同步订阅
func (b *Bus) Subscribe(eventType EventType, handler interface{}) error {
	return b.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅
func (b *Bus) SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error {
	return b.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Publish 发布事件
func (b *Bus) Publish(eventType EventType, args ...interface{}) {
	b.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅，handler 必须是订阅时的同一个函数值
func (b *Bus) Unsubscribe(eventType EventType, handler interface{}) error {
	return b.bus.Unsubscribe(string(eventType), handler)
}

// HasSubscribers 是否存在订阅者
func (b *Bus) HasSubscribers(eventType EventType) bool {
	return b.bus.HasCallback(string(eventType))
}

// WaitAsync 等待异步处理完成
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

// PublishSubmission 发布提交结束事件
func (b *Bus) PublishSubmission(e Submission) {
	if b.logger != nil {
		b.logger.Debugf("publish %s: id=%s kind=%s success=%t class=%s",
			SubmissionCompleted, e.ID, e.Kind, e.Success, e.Class)
	}
	b.Publish(SubmissionCompleted, e)
}

// SubscribeSubmissions 订阅提交结束事件，返回取消函数
func (b *Bus) SubscribeSubmissions(handler func(Submission)) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("nil submission handler")
	}
	if err := b.Subscribe(SubmissionCompleted, handler); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", SubmissionCompleted, err)
	}
	return func() { _ = b.Unsubscribe(SubmissionCompleted, handler) }, nil
}

// PublishStatusChange 发布状态变化事件
func (b *Bus) PublishStatusChange(e StatusChange) {
	b.Publish(StatusChanged, e)
}

// SubscribeStatusChanges 订阅状态变化事件，返回取消函数
func (b *Bus) SubscribeStatusChanges(handler func(StatusChange)) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("nil status handler")
	}
	if err := b.Subscribe(StatusChanged, handler); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", StatusChanged, err)
	}
	return func() { _ = b.Unsubscribe(StatusChanged, handler) }, nil
}
