// Package status 玩家状态投影
//
// 链上查询给出权威状态；成功的提交会乐观地推进本地状态而不重新查询。
// 非显式刷新的查询结果不会让已观察到的状态倒退。
package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/wager/internal/core/infrastructure/log"
	"github.com/weisyn/wager/pkg/interfaces/infrastructure/log"
)

// PlayerStatus 玩家状态
type PlayerStatus = program.PlayerStatus

const (
	NotInGame = program.NotInGame
	Accepted  = program.Accepted
	Joined    = program.Joined
)

// Key 投影键
type Key struct {
	Challenge solana.PublicKey
	Player    solana.PublicKey
}

// Publisher 状态变化发布者
type Publisher interface {
	PublishStatusChange(e event.StatusChange)
}

// Tracker 状态投影
type Tracker struct {
	programs  *program.Registry
	publisher Publisher
	logger    log.Logger

	mu      sync.RWMutex
	entries map[Key]PlayerStatus
}

// NewTracker 创建状态投影；publisher 与 logger 可为 nil
func NewTracker(programs *program.Registry, publisher Publisher, logger log.Logger) *Tracker {
	if logger == nil {
		logger = logimpl.NewNop()
	}
	return &Tracker{
		programs:  programs,
		publisher: publisher,
		logger:    logger.With("module", "status"),
		entries:   make(map[Key]PlayerStatus),
	}
}

// Cached 返回本地状态
func (t *Tracker) Cached(challenge, player solana.PublicKey) (PlayerStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.entries[Key{challenge, player}]
	return s, ok
}

func (t *Tracker) query(ctx context.Context, ct program.ChallengeType, challenge, player solana.PublicKey) (PlayerStatus, error) {
	client, err := t.programs.For(ct)
	if err != nil {
		return NotInGame, err
	}
	s, err := client.PlayerStatus(ctx, challenge, player)
	if err != nil {
		return NotInGame, fmt.Errorf("query player status: %w", err)
	}
	return s, nil
}

// Status 查询链上状态并与本地状态合并，结果不低于已观察到的状态
func (t *Tracker) Status(ctx context.Context, ct program.ChallengeType, challenge, player solana.PublicKey) (PlayerStatus, error) {
	queried, err := t.query(ctx, ct, challenge, player)
	if err != nil {
		return NotInGame, err
	}

	key := Key{challenge, player}
	t.mu.Lock()
	prev, seen := t.entries[key]
	next := queried
	if seen && prev.Rank() > queried.Rank() {
		next = prev
		t.logger.Debugf("keeping %s over queried %s for %s", prev, queried, challenge)
	}
	t.entries[key] = next
	t.mu.Unlock()

	t.notify(key, prev, next)
	return next, nil
}

// Refresh 显式刷新，以链上状态覆盖本地状态（允许倒退）
func (t *Tracker) Refresh(ctx context.Context, ct program.ChallengeType, challenge, player solana.PublicKey) (PlayerStatus, error) {
	queried, err := t.query(ctx, ct, challenge, player)
	if err != nil {
		return NotInGame, err
	}
	t.set(Key{challenge, player}, queried)
	return queried, nil
}

// Forget 清除本地状态
func (t *Tracker) Forget(challenge, player solana.PublicKey) {
	t.mu.Lock()
	delete(t.entries, Key{challenge, player})
	t.mu.Unlock()
}

// Apply 根据提交结果做乐观转换
func (t *Tracker) Apply(r *submit.Result) {
	if r == nil {
		return
	}
	t.observe(string(r.Kind), r.Challenge, r.Player, r.Success(), r.Class().String())
}

// observe 只有 join/accept 成功与 AlreadyJoined 会产生转换
func (t *Tracker) observe(kind string, challenge, player solana.PublicKey, success bool, class string) {
	if challenge.IsZero() || player.IsZero() {
		return
	}

	var next PlayerStatus
	switch {
	case success && kind == string(builder.KindJoin):
		next = Joined
	case success && kind == string(builder.KindAccept):
		next = Accepted
	case !success && kind == string(builder.KindJoin) && class == submit.ClassAlreadyJoined.String():
		next = Joined
	default:
		return
	}
	t.set(Key{challenge, player}, next)
}

func (t *Tracker) set(key Key, next PlayerStatus) {
	t.mu.Lock()
	prev := t.entries[key]
	t.entries[key] = next
	t.mu.Unlock()
	t.notify(key, prev, next)
}

func (t *Tracker) notify(key Key, prev, next PlayerStatus) {
	if prev == next {
		return
	}
	t.logger.Infof("player status %s -> %s (challenge=%s)", prev, next, key.Challenge)
	if t.publisher != nil {
		t.publisher.PublishStatusChange(event.StatusChange{
			Challenge: key.Challenge,
			Player:    key.Player,
			From:      prev.String(),
			To:        next.String(),
		})
	}
}
