package status

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/wager/client/core/builder"
	"github.com/weisyn/wager/client/core/program"
	"github.com/weisyn/wager/client/core/submit"
	"github.com/weisyn/wager/internal/core/infrastructure/event"
)

// chainStatus 可变的链上状态
type chainStatus struct {
	program.Client
	kind    program.ChallengeType
	current PlayerStatus
	err     error
	queries int
}

func (c *chainStatus) Type() program.ChallengeType { return c.kind }

func (c *chainStatus) PlayerStatus(context.Context, solana.PublicKey, solana.PublicKey) (PlayerStatus, error) {
	c.queries++
	return c.current, c.err
}

type changeLog struct{ changes []event.StatusChange }

func (l *changeLog) PublishStatusChange(e event.StatusChange) { l.changes = append(l.changes, e) }

func setup() (*Tracker, *chainStatus, *changeLog, solana.PublicKey, solana.PublicKey) {
	chain := &chainStatus{kind: program.NonFungible}
	log := &changeLog{}
	tr := NewTracker(program.NewRegistry(chain), log, nil)
	return tr, chain, log, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
}

func TestStatusIsMonotonicWithoutRefresh(t *testing.T) {
	tr, chain, _, challenge, player := setup()
	ctx := context.Background()

	chain.current = Accepted
	s, err := tr.Status(ctx, program.NonFungible, challenge, player)
	require.NoError(t, err)
	assert.Equal(t, Accepted, s)

	chain.current = NotInGame
	s, err = tr.Status(ctx, program.NonFungible, challenge, player)
	require.NoError(t, err)
	assert.Equal(t, Accepted, s, "a lagging query must not regress the observed state")

	chain.current = Joined
	s, err = tr.Status(ctx, program.NonFungible, challenge, player)
	require.NoError(t, err)
	assert.Equal(t, Joined, s)

	chain.current = NotInGame
	s, err = tr.Refresh(ctx, program.NonFungible, challenge, player)
	require.NoError(t, err)
	assert.Equal(t, NotInGame, s)
	cached, ok := tr.Cached(challenge, player)
	assert.True(t, ok)
	assert.Equal(t, NotInGame, cached)
}

func TestOptimisticTransitions(t *testing.T) {
	tests := []struct {
		name   string
		result submit.Result
		want   PlayerStatus
		moved  bool
	}{
		{"join success", submit.Result{Kind: builder.KindJoin}, Joined, true},
		{"accept success", submit.Result{Kind: builder.KindAccept}, Accepted, true},
		{"already joined", submit.Result{Kind: builder.KindJoin, Err: &submit.ClassifiedError{Class: submit.ClassAlreadyJoined}}, Joined, true},
		{"capacity full", submit.Result{Kind: builder.KindJoin, Err: &submit.ClassifiedError{Class: submit.ClassCapacityFull}}, NotInGame, false},
		{"user rejected", submit.Result{Kind: builder.KindAccept, Err: &submit.ClassifiedError{Class: submit.ClassUserRejected}}, NotInGame, false},
		{"offering success", submit.Result{Kind: builder.KindAddOffering}, NotInGame, false},
		{"already in use on offering", submit.Result{Kind: builder.KindAddOffering, Err: &submit.ClassifiedError{Class: submit.ClassAlreadyJoined}}, NotInGame, false},
		{"already in use on accept", submit.Result{Kind: builder.KindAccept, Err: &submit.ClassifiedError{Class: submit.ClassAlreadyJoined}}, NotInGame, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, chain, log, challenge, player := setup()
			r := tt.result
			r.Challenge, r.Player = challenge, player

			tr.Apply(&r)

			got, ok := tr.Cached(challenge, player)
			assert.Equal(t, tt.moved, ok)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, chain.queries, "optimistic transitions never query the chain")
			if tt.moved {
				require.Len(t, log.changes, 1)
				assert.Equal(t, tt.want.String(), log.changes[0].To)
			} else {
				assert.Empty(t, log.changes)
			}
		})
	}
}

func TestAlreadyJoinedSurvivesLaggingQuery(t *testing.T) {
	tr, chain, _, challenge, player := setup()
	tr.Apply(&submit.Result{
		Kind:      builder.KindJoin,
		Challenge: challenge,
		Player:    player,
		Err:       &submit.ClassifiedError{Class: submit.ClassAlreadyJoined},
	})

	chain.current = NotInGame
	s, err := tr.Status(context.Background(), program.NonFungible, challenge, player)
	require.NoError(t, err)
	assert.Equal(t, Joined, s)
}

func TestQueryErrors(t *testing.T) {
	tr, chain, _, challenge, player := setup()
	chain.err = errors.New("rpc down")

	_, err := tr.Status(context.Background(), program.NonFungible, challenge, player)
	assert.Error(t, err)

	_, err = tr.Status(context.Background(), program.Fungible, challenge, player)
	assert.ErrorIs(t, err, program.ErrProgramNotConfigured)

	_, ok := tr.Cached(challenge, player)
	assert.False(t, ok)
}

func TestApplyPublishesStatusChange(t *testing.T) {
	bus := event.New(nil)
	tr := NewTracker(program.NewRegistry(), bus, nil)

	var changes []event.StatusChange
	_, err := bus.SubscribeStatusChanges(func(e event.StatusChange) { changes = append(changes, e) })
	require.NoError(t, err)

	challenge, player := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	tr.Apply(&submit.Result{Kind: builder.KindJoin, Challenge: challenge, Player: player})
	tr.Apply(&submit.Result{Kind: builder.KindJoin, Challenge: challenge, Player: player})

	s, ok := tr.Cached(challenge, player)
	require.True(t, ok)
	assert.Equal(t, Joined, s)
	require.Len(t, changes, 1, "repeated transitions publish once")
	assert.Equal(t, "NOT_IN_GAME", changes[0].From)
	assert.Equal(t, "JOINED", changes[0].To)
}
