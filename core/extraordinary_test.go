package core

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newExtraordinaryFund holds 10M in the treasury and 7M outside of it:
// alice 6M, bob 1M.
func newExtraordinaryFund(t *testing.T) *testFund {
	tf := newTestFund(t, testParams())
	tf.fundTreasury(t, tokens(10_000_000))
	tf.tok.Mint(alice, tokens(6_000_000))
	tf.tok.Mint(bob, tokens(1_000_000))
	tf.at(10)
	return tf
}

func (tf *testFund) proposeExtraordinary(t *testing.T, endBlock uint64, call proposalCall) error {
	_, err := tf.ProposeExtraordinary(context.Background(), alice, endBlock, call.targets, call.values, call.calldatas, call.description)
	return err
}

func (tf *testFund) executeExtraordinary(call proposalCall) error {
	_, err := tf.ExecuteExtraordinary(context.Background(), call.targets, call.values, call.calldatas, DescriptionHash(Extraordinary, call.description))
	return err
}

func TestExtraordinaryFunding(t *testing.T) {
	ctx := context.Background()
	tf := newExtraordinaryFund(t)

	thr, err := tf.MinimumThresholdPercentage(ctx)
	require.Nil(t, err)
	assertAmount(t, percent(50), thr)

	slice, err := tf.SliceOfNonTreasury(ctx, thr)
	require.Nil(t, err)
	assertAmount(t, tokens(3_500_000), slice)
	slice, err = tf.SliceOfTreasury(ctx, sub(wad, thr))
	require.Nil(t, err)
	assertAmount(t, tokens(5_000_000), slice)

	call := transferCall(t, carol, tokens(1_000_000), "audit")
	require.Nil(t, tf.proposeExtraordinary(t, 40, call))
	id, err := HashProposal(call.targets, call.values, call.calldatas, DescriptionHash(Extraordinary, call.description))
	require.Nil(t, err)

	votes, err := tf.VotesExtraordinary(ctx, bob, id)
	require.Nil(t, err)
	assertAmount(t, tokens(1_000_000), votes)

	// needs 1M + 3.5M votes
	_, err = tf.ExtraordinaryVote(ctx, bob, id)
	require.Nil(t, err)
	err = tf.executeExtraordinary(call)
	assert.True(t, errors.Is(err, ErrProposalNotSuccessful))
	st, err := tf.State(ctx, id)
	require.Nil(t, err)
	assert.Equal(t, Active, st)

	_, err = tf.ExtraordinaryVote(ctx, bob, id)
	assert.True(t, errors.Is(err, ErrAlreadyVoted))
	votes, err = tf.VotesExtraordinary(ctx, bob, id)
	require.Nil(t, err)
	assertAmount(t, tokens(0), votes)

	tf.at(20)
	_, err = tf.ExtraordinaryVote(ctx, alice, id)
	require.Nil(t, err)
	voted, err := tf.HasVotedExtraordinary(ctx, id, alice)
	require.Nil(t, err)
	assert.True(t, voted)

	p, err := tf.ExtraordinaryProposalInfo(ctx, id)
	require.Nil(t, err)
	assertAmount(t, tokens(7_000_000), p.VotesReceived)
	st, err = tf.State(ctx, id)
	require.Nil(t, err)
	assert.Equal(t, Succeeded, st)

	require.Nil(t, tf.executeExtraordinary(call))
	assertAmount(t, tokens(1_000_000), tf.balance(t, carol))
	assertAmount(t, tokens(9_000_000), tf.treasury(t))

	err = tf.executeExtraordinary(call)
	assert.True(t, errors.Is(err, ErrExecuteProposalInvalid))
	st, err = tf.State(ctx, id)
	require.Nil(t, err)
	assert.Equal(t, Executed, st)

	// one more point of the ratchet
	thr, err = tf.MinimumThresholdPercentage(ctx)
	require.Nil(t, err)
	assertAmount(t, percent(55), thr)

	executed := tf.eventsOf(EventProposalExecuted)
	require.Len(t, executed, 1)
	assert.Equal(t, Extraordinary, executed[0].Data.(ProposalExecutedEvent).Mechanism)
}

func TestExtraordinaryProposalRejections(t *testing.T) {
	ctx := context.Background()
	tf := newExtraordinaryFund(t)

	tooLong := transferCall(t, carol, tokens(1), "too long")
	assert.True(t, errors.Is(tf.proposeExtraordinary(t, 61, tooLong), ErrInvalidProposal))
	assert.True(t, errors.Is(tf.proposeExtraordinary(t, 9, tooLong), ErrInvalidProposal))
	require.Nil(t, tf.proposeExtraordinary(t, 60, tooLong))
	assert.True(t, errors.Is(tf.proposeExtraordinary(t, 60, tooLong), ErrProposalAlreadyExists))

	// more than half of the treasury
	greedy := transferCall(t, carol, tokens(5_000_001), "greedy")
	assert.True(t, errors.Is(tf.proposeExtraordinary(t, 20, greedy), ErrInvalidProposal))

	short := transferCall(t, carol, tokens(1), "short")
	require.Nil(t, tf.proposeExtraordinary(t, 15, short))
	id, err := HashProposal(short.targets, short.values, short.calldatas, DescriptionHash(Extraordinary, short.description))
	require.Nil(t, err)

	_, err = tf.ExtraordinaryVote(ctx, carol, id)
	assert.True(t, errors.Is(err, ErrInsufficientVotingPower))

	tf.at(16)
	_, err = tf.ExtraordinaryVote(ctx, alice, id)
	assert.True(t, errors.Is(err, ErrExtraordinaryProposalInactive))
	st, err := tf.State(ctx, id)
	require.Nil(t, err)
	assert.Equal(t, Defeated, st)

	// standard ids are not votable here
	_, err = tf.StartNewDistributionPeriod(ctx)
	require.Nil(t, err)
	standard, _ := tf.propose(t, carol, tokens(1), "standard")
	_, err = tf.ExtraordinaryVote(ctx, alice, standard)
	assert.True(t, errors.Is(err, ErrMechanismMismatch))
}

func TestExecuteExtraordinaryCompensation(t *testing.T) {
	ctx := context.Background()
	tf := newExtraordinaryFund(t)

	call := transferCall(t, carol, tokens(1_000_000), "audit")
	require.Nil(t, tf.proposeExtraordinary(t, 40, call))
	id, err := HashProposal(call.targets, call.values, call.calldatas, DescriptionHash(Extraordinary, call.description))
	require.Nil(t, err)
	tf.at(11)
	_, err = tf.ExtraordinaryVote(ctx, alice, id)
	require.Nil(t, err)

	tf.tok.setBroken(true)
	assert.NotNil(t, tf.executeExtraordinary(call))
	assertAmount(t, tokens(10_000_000), tf.treasury(t))
	thr, err := tf.MinimumThresholdPercentage(ctx)
	require.Nil(t, err)
	assertAmount(t, percent(50), thr)
	p, err := tf.ExtraordinaryProposalInfo(ctx, id)
	require.Nil(t, err)
	assert.False(t, p.Executed)

	tf.tok.setBroken(false)
	require.Nil(t, tf.executeExtraordinary(call))
	assertAmount(t, tokens(9_000_000), tf.treasury(t))
}
