package core

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartNewDistributionPeriod(t *testing.T) {
	ctx := context.Background()
	tf := newTestFund(t, testParams())
	tf.fundTreasury(t, tokens(10_000))

	id, err := tf.CurrentDistributionID(ctx)
	require.Nil(t, err)
	assert.EqualValues(t, 0, id)

	tf.at(10)
	id, err = tf.StartNewDistributionPeriod(ctx)
	require.Nil(t, err)
	assert.EqualValues(t, 1, id)

	dp, err := tf.DistributionPeriodInfo(ctx, 1)
	require.Nil(t, err)
	assert.EqualValues(t, 10, dp.StartBlock)
	assert.EqualValues(t, 110, dp.EndBlock)
	assertAmount(t, tokens(1000), dp.FundsAvailable)
	assertAmount(t, tokens(9000), tf.treasury(t))

	events := tf.eventsOf(EventDistributionPeriodStarted)
	require.Len(t, events, 1)
	assert.EqualValues(t, 10, events[0].Block)
	assert.EqualValues(t, 1, events[0].Data.(DistributionPeriodStartedEvent).DistributionID)

	for _, block := range []uint64{50, 110} {
		tf.at(block)
		_, err = tf.StartNewDistributionPeriod(ctx)
		assert.True(t, errors.Is(err, ErrPeriodStillActive), "block %d", block)
	}
	assertAmount(t, tokens(9000), tf.treasury(t))

	_, err = tf.DistributionPeriodInfo(ctx, 2)
	assert.True(t, errors.Is(err, ErrDistributionNotFound))
}

func TestStageBoundaries(t *testing.T) {
	ctx := context.Background()
	tf := newTestFund(t, testParams())
	tf.fundTreasury(t, tokens(100))
	tf.at(10)
	_, err := tf.StartNewDistributionPeriod(ctx)
	require.Nil(t, err)

	tests := []struct {
		block uint64
		stage Stage
	}{
		{10, StageScreening},
		{90, StageScreening},
		{91, StageFunding},
		{110, StageFunding},
		{111, StageChallenge},
		{120, StageChallenge},
		{121, StageClosed},
	}
	for _, tt := range tests {
		tf.at(tt.block)
		stage, err := tf.Stage(ctx, 1)
		require.Nil(t, err)
		assert.Equal(t, tt.stage, stage, "block %d", tt.block)
	}

	assert.EqualValues(t, 90, tf.ScreeningStageEndBlock(110))
	assert.EqualValues(t, 111, tf.ChallengeStageStartBlock(110))
	assert.EqualValues(t, 120, tf.ChallengeStageEndBlock(110))
}

func TestSurplusLookBack(t *testing.T) {
	ctx := context.Background()
	tf := newTestFund(t, testParams())
	tf.fundTreasury(t, tokens(10_000))

	starts := []struct {
		block    uint64
		treasury int64
	}{
		// nothing to reclaim yet
		{10, 9000},
		// period 1 is in its challenge stage, keeps its budget
		{111, 8100},
		// period 1 reclaimed as the previous period
		{212, 8190},
		// period 2 reclaimed as the previous period
		{313, 8181},
	}
	for i, s := range starts {
		tf.at(s.block)
		id, err := tf.StartNewDistributionPeriod(ctx)
		require.Nil(t, err)
		assert.EqualValues(t, i+1, id)
		assertAmount(t, tokens(s.treasury), tf.treasury(t), "period %d", id)
	}

	outstanding := new(big.Int)
	for id := uint64(1); id <= 4; id++ {
		dp, err := tf.DistributionPeriodInfo(ctx, id)
		require.Nil(t, err)
		assert.Equal(t, id <= 2, dp.SurplusReturned, "period %d", id)
		if !dp.SurplusReturned {
			outstanding.Add(outstanding, dp.FundsAvailable)
		}
	}
	// no leakage
	assertAmount(t, tokens(10_000), add(tf.treasury(t), outstanding))
	assertAmount(t, tokens(10_000), tf.balance(t, custody))
}

func TestSurplusOfClosedPeriod(t *testing.T) {
	ctx := context.Background()
	tf := newTestFund(t, testParams())
	tf.fundTreasury(t, tokens(10_000))

	tf.at(10)
	_, err := tf.StartNewDistributionPeriod(ctx)
	require.Nil(t, err)

	tf.at(200)
	id, err := tf.StartNewDistributionPeriod(ctx)
	require.Nil(t, err)
	assert.EqualValues(t, 2, id)
	assertAmount(t, tokens(9000), tf.treasury(t))

	dp, err := tf.DistributionPeriodInfo(ctx, 1)
	require.Nil(t, err)
	assert.True(t, dp.SurplusReturned)
}
