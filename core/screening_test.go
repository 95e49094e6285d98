package core

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScreeningFund starts period 1 at block 10 with alice holding 100 tokens.
func newScreeningFund(t *testing.T) *testFund {
	tf := newTestFund(t, testParams())
	tf.fundTreasury(t, tokens(10_000))
	tf.tok.Mint(alice, tokens(100))
	tf.at(10)
	_, err := tf.StartNewDistributionPeriod(context.Background())
	require.Nil(t, err)
	return tf
}

func screen(id common.Hash, votes int64) ScreeningVoteParams {
	return ScreeningVoteParams{ProposalID: id, Votes: tokens(votes)}
}

func TestScreeningCeiling(t *testing.T) {
	ctx := context.Background()
	tf := newScreeningFund(t)
	a, _ := tf.propose(t, carol, tokens(10), "a")
	b, _ := tf.propose(t, dave, tokens(10), "b")

	// tokens minted in the period start block do not count
	tf.tok.Mint(alice, tokens(1000))
	tf.at(20)

	power, err := tf.VotesScreening(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(100), power)

	cast, err := tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(a, 60)})
	require.Nil(t, err)
	assertAmount(t, tokens(60), cast)

	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(b, 50)})
	assert.True(t, errors.Is(err, ErrInsufficientVotingPower))

	// a failing vote in the batch rejects the whole call
	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(b, 10), screen(a, 31)})
	assert.True(t, errors.Is(err, ErrInsufficientVotingPower))

	used, err := tf.ScreeningVotesCast(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(60), used)
	p, err := tf.ProposalInfo(ctx, b)
	require.Nil(t, err)
	assertAmount(t, new(big.Int), p.VotesReceived)

	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(b, 30), screen(a, 10)})
	require.Nil(t, err)

	used, err = tf.ScreeningVotesCast(ctx, 1, alice)
	require.Nil(t, err)
	assertAmount(t, tokens(100), used)
	p, err = tf.ProposalInfo(ctx, a)
	require.Nil(t, err)
	assertAmount(t, tokens(70), p.VotesReceived)

	top, err := tf.TopTenProposals(ctx, 1)
	require.Nil(t, err)
	assert.Equal(t, []common.Hash{a, b}, top)
	assert.Len(t, tf.eventsOf(EventVoteCast), 3)
}

func TestScreeningVoteRejections(t *testing.T) {
	ctx := context.Background()
	tf := newScreeningFund(t)
	a, _ := tf.propose(t, carol, tokens(10), "a")

	_, err := tf.ScreeningVote(ctx, alice, nil)
	assert.True(t, errors.Is(err, ErrInvalidVote))

	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(a, 0)})
	assert.True(t, errors.Is(err, ErrInvalidVote))

	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{{ProposalID: a, Votes: big.NewInt(-1)}})
	assert.True(t, errors.Is(err, ErrInvalidVote))

	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(common.HexToHash("0x01"), 1)})
	assert.True(t, errors.Is(err, ErrInvalidVote))

	// bob holds nothing
	_, err = tf.ScreeningVote(ctx, bob, []ScreeningVoteParams{screen(a, 1)})
	assert.True(t, errors.Is(err, ErrInsufficientVotingPower))

	tf.at(91)
	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(a, 1)})
	assert.True(t, errors.Is(err, ErrScreeningPeriodEnded))

	// proposals of an older period cannot be screened in the next one
	tf.at(200)
	_, err = tf.StartNewDistributionPeriod(ctx)
	require.Nil(t, err)
	tf.at(210)
	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(a, 1)})
	assert.True(t, errors.Is(err, ErrInvalidVote))

	assert.Empty(t, tf.eventsOf(EventVoteCast))
}

func TestTopTenBound(t *testing.T) {
	ctx := context.Background()
	tf := newScreeningFund(t)
	tf.tok.Mint(bob, tokens(1000))
	tf.at(20)

	ids := make([]common.Hash, 12)
	for i := range ids {
		ids[i], _ = tf.propose(t, carol, tokens(1), fmt.Sprintf("proposal %d", i))
	}
	// bob's tokens were minted in the period start block
	_, err := tf.ScreeningVote(ctx, bob, []ScreeningVoteParams{screen(ids[0], 1)})
	require.True(t, errors.Is(err, ErrInsufficientVotingPower))

	// proposal i receives i+1 votes, 78 in total
	for i, id := range ids {
		_, err := tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(id, int64(i+1))})
		require.Nil(t, err)
	}

	top, err := tf.TopTenProposals(ctx, 1)
	require.Nil(t, err)
	require.Len(t, top, maxTopTen)
	for i, id := range top {
		assert.Equal(t, ids[len(ids)-1-i], id, "rank %d", i)
	}
	assert.NotContains(t, top, ids[0])
	assert.NotContains(t, top, ids[1])

	// every member has at least the votes of any screened non-member
	last, err := tf.ProposalInfo(ctx, top[maxTopTen-1])
	require.Nil(t, err)
	for _, id := range ids[:2] {
		p, err := tf.ProposalInfo(ctx, id)
		require.Nil(t, err)
		assert.True(t, last.VotesReceived.Cmp(p.VotesReceived) >= 0)
	}

	// reaching the 10th place without passing it is not enough
	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(ids[1], 1)})
	require.Nil(t, err)
	top, err = tf.TopTenProposals(ctx, 1)
	require.Nil(t, err)
	assert.NotContains(t, top, ids[1])

	// passing it evicts the 10th
	_, err = tf.ScreeningVote(ctx, alice, []ScreeningVoteParams{screen(ids[0], 13)})
	require.Nil(t, err)
	top, err = tf.TopTenProposals(ctx, 1)
	require.Nil(t, err)
	require.Len(t, top, maxTopTen)
	assert.Equal(t, ids[0], top[0])
	assert.NotContains(t, top, ids[2])
}

func TestRankProposal(t *testing.T) {
	h := func(n int64) common.Hash { return common.BigToHash(big.NewInt(n)) }

	var list []ranked
	for i := int64(1); i <= 10; i++ {
		list = rankProposal(list, h(i), big.NewInt(i))
	}
	require.Len(t, list, 10)
	assert.Equal(t, h(10), list[0].id)
	assert.Equal(t, h(1), list[9].id)

	// tie with the 10th stays out
	list = rankProposal(list, h(11), big.NewInt(1))
	assert.Len(t, list, 10)
	assert.Equal(t, h(1), list[9].id)

	list = rankProposal(list, h(12), big.NewInt(2))
	assert.Equal(t, h(2), list[8].id)
	assert.Equal(t, h(12), list[9].id)

	// an existing entry moves up past lower votes, ties keep the earlier entry first
	list = rankProposal(list, h(3), big.NewInt(10))
	assert.Equal(t, h(10), list[0].id)
	assert.Equal(t, h(3), list[1].id)

	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].votes.Cmp(list[i].votes) >= 0)
	}
}
