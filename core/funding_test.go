package core

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fund(id common.Hash, votes int64) FundingVoteParams {
	return FundingVoteParams{ProposalID: id, VotesUsed: tokens(votes)}
}

// screenAll puts every proposal into the top ten with one vote from voter.
func (tf *testFund) screenAll(t *testing.T, voter common.Address, ids ...common.Hash) {
	votes := make([]ScreeningVoteParams, len(ids))
	for i, id := range ids {
		votes[i] = screen(id, 1)
	}
	_, err := tf.ScreeningVote(context.Background(), voter, votes)
	require.Nil(t, err)
}

func TestFundingQuadraticBudget(t *testing.T) {
	ctx := context.Background()
	tf := newScreeningFund(t)
	x, _ := tf.propose(t, carol, tokens(10), "x")
	y, _ := tf.propose(t, dave, tokens(10), "y")
	tf.screenAll(t, alice, x, y)

	tf.at(95)
	power, err := tf.VotesFunding(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(10_000), power)

	spent, err := tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, 60)})
	require.Nil(t, err)
	assertAmount(t, tokens(3600), spent)

	power, err = tf.VotesFunding(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(6400), power)

	// 3600 + 6561 exceeds 10000
	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(y, 81)})
	assert.True(t, errors.Is(err, ErrInsufficientVotingPower))
	voter, err := tf.VoterInfo(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(6400), voter.FundingRemainingVotingPower)
	assert.Len(t, voter.VotesCast, 1)
	p, err := tf.ProposalInfo(ctx, y)
	require.Nil(t, err)
	assertAmount(t, tokens(0), p.FundingVotesReceived)

	// 80 votes on x cost 6400 in total
	spent, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, 20)})
	require.Nil(t, err)
	assertAmount(t, tokens(2800), spent)

	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, -10)})
	assert.True(t, errors.Is(err, ErrFundingVoteWrongDirection))

	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(y, -30)})
	require.Nil(t, err)

	votes, err := tf.FundingVotesCast(ctx, 1, alice)
	require.Nil(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, x, votes[0].ProposalID)
	assertAmount(t, tokens(80), votes[0].VotesUsed)
	assertAmount(t, tokens(-30), votes[1].VotesUsed)

	voter, err = tf.VoterInfo(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(10_000), voter.FundingVotingPower)
	assertAmount(t, tokens(2700), voter.FundingRemainingVotingPower)
	assert.True(t, fundingCost(voter.VotesCast).Cmp(voter.FundingVotingPower) <= 0)

	dp, err := tf.DistributionPeriodInfo(ctx, 1)
	require.Nil(t, err)
	assertAmount(t, tokens(7300), dp.FundingVotePowerCast)

	p, err = tf.ProposalInfo(ctx, y)
	require.Nil(t, err)
	assertAmount(t, tokens(-30), p.FundingVotesReceived)

	against := tf.eventsOf(EventVoteCast)
	last := against[len(against)-1].Data.(VoteCastEvent)
	assert.EqualValues(t, 0, last.Support)
	assert.Equal(t, StageFunding, last.Stage)
	assertAmount(t, tokens(30), last.Weight)
}

func TestFundingVoteRejections(t *testing.T) {
	ctx := context.Background()
	tf := newScreeningFund(t)
	x, _ := tf.propose(t, carol, tokens(10), "x")
	unscreened, _ := tf.propose(t, dave, tokens(10), "unscreened")
	tf.screenAll(t, alice, x)

	_, err := tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, 1)})
	assert.True(t, errors.Is(err, ErrInvalidVote), "screening stage")

	power, err := tf.VotesFunding(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(0), power)

	tf.at(91)
	_, err = tf.FundingVote(ctx, alice, nil)
	assert.True(t, errors.Is(err, ErrInvalidVote))

	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, 0)})
	assert.True(t, errors.Is(err, ErrInvalidVote))

	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(unscreened, 1)})
	assert.True(t, errors.Is(err, ErrInvalidVote))

	_, err = tf.FundingVote(ctx, bob, []FundingVoteParams{fund(x, 1)})
	assert.True(t, errors.Is(err, ErrInsufficientVotingPower))

	// a batch is all or nothing
	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, 5), fund(unscreened, 1)})
	assert.True(t, errors.Is(err, ErrInvalidVote))
	voter, err := tf.VoterInfo(ctx, 1, alice)
	require.Nil(t, err)
	assert.Empty(t, voter.VotesCast)
	assertAmount(t, tokens(0), voter.FundingVotingPower)

	tf.at(111)
	_, err = tf.FundingVote(ctx, alice, []FundingVoteParams{fund(x, 1)})
	assert.True(t, errors.Is(err, ErrInvalidVote), "challenge stage")

	for _, evt := range tf.eventsOf(EventVoteCast) {
		assert.Equal(t, StageScreening, evt.Data.(VoteCastEvent).Stage)
	}
}
