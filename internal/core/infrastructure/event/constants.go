// 事件类型常量定义

package event

// EventType 事件类型
type EventType string

const (
	// SubmissionCompleted 一次提交（含全部重试）结束
	SubmissionCompleted EventType = "submission.completed"

	// StatusChanged 玩家状态投影发生变化
	StatusChanged EventType = "status.changed"
)
