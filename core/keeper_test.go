package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/grants/repo"
	"github.com/axiomesh/grants/storage"
	"github.com/axiomesh/grants/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newKeeperFund(t *testing.T, client *MockClient) (*GrantFund, *storage.MemStore) {
	tok := token.NewMemory(tokenAddr, custody)
	tok.Mint(funder, tokens(10_000))
	tok.Approve(funder, custody, tokens(10_000))

	db := storage.NewMemStore()
	f, err := NewGrantFund(db, tok, client, custody, WithParams(testParams()))
	require.Nil(t, err)
	require.Nil(t, f.FundTreasury(context.Background(), funder, tokens(10_000)))
	return f, db
}

func keeperConfig() repo.Keeper {
	return repo.Keeper{
		Enable:            true,
		AutoStartPeriod:   true,
		ReconnectAttempts: 3,
		ReconnectBackoff:  10 * time.Millisecond,
	}
}

func TestKeeperStartsPeriods(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	client := &MockClient{}
	f, db := newKeeperFund(t, client)

	keeper := NewKeeper(ctx, keeperConfig(), f, client, db, log.New())
	require.Nil(t, keeper.Start())

	currentIs := func(expected uint64) func() bool {
		return func() bool {
			id, err := f.CurrentDistributionID(ctx)
			return err == nil && id == expected
		}
	}

	client.Mine(1)
	assert.Eventually(t, currentIs(1), time.Second, 10*time.Millisecond)

	// still screening, nothing to start
	client.Mine(50)
	assert.Eventually(t, func() bool { return keeper.LastBlock() == 50 }, time.Second, 10*time.Millisecond)
	id, err := f.CurrentDistributionID(ctx)
	require.Nil(t, err)
	assert.EqualValues(t, 1, id)

	client.Mine(102)
	assert.Eventually(t, currentIs(2), time.Second, 10*time.Millisecond)

	dp, err := f.DistributionPeriodInfo(ctx, 2)
	require.Nil(t, err)
	assert.EqualValues(t, 102, dp.StartBlock)

	require.Nil(t, keeper.Stop())
}

func TestKeeperResume(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	client := &MockClient{}
	f, db := newKeeperFund(t, client)

	config := keeperConfig()
	config.AutoStartPeriod = false
	keeper := NewKeeper(ctx, config, f, client, db, log.New())
	client.Mine(40)
	require.Nil(t, keeper.Start())
	assert.EqualValues(t, 40, keeper.LastBlock())
	require.Nil(t, keeper.Stop())

	id, err := f.CurrentDistributionID(ctx)
	require.Nil(t, err)
	assert.EqualValues(t, 0, id)

	// a new keeper on the same store picks up where the last one stopped
	restarted := NewKeeper(ctx, config, f, client, db, log.New())
	assert.EqualValues(t, 40, restarted.LastBlock())
	restarted.handleHead(30)
	assert.EqualValues(t, 40, restarted.LastBlock())
}

func TestKeeperReconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	client := &MockClient{}
	f, db := newKeeperFund(t, client)

	keeper := NewKeeper(ctx, keeperConfig(), f, client, db, log.New())
	var dials atomic.Int32
	keeper.Dial = func(ctx context.Context) (HeadClient, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return client, nil
	}
	require.Nil(t, keeper.Start())

	client.Fail(errors.New("websocket closed"))
	assert.Eventually(t, func() bool { return dials.Load() == 2 }, time.Second, 10*time.Millisecond)

	client.Mine(1)
	assert.Eventually(t, func() bool {
		id, err := f.CurrentDistributionID(ctx)
		return err == nil && id == 1
	}, time.Second, 10*time.Millisecond)

	require.Nil(t, keeper.Stop())
}

func TestKeeperStopDuringBackoff(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	client := &MockClient{}
	f, db := newKeeperFund(t, client)

	config := keeperConfig()
	config.ReconnectBackoff = time.Hour
	keeper := NewKeeper(ctx, config, f, client, db, log.New())
	var dials atomic.Int32
	keeper.Dial = func(ctx context.Context) (HeadClient, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}
	require.Nil(t, keeper.Start())

	client.Fail(errors.New("websocket closed"))
	assert.Eventually(t, func() bool { return dials.Load() == 1 }, time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		assert.Nil(t, keeper.Stop())
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop blocked on the reconnect backoff")
	}
	assert.EqualValues(t, 1, dials.Load())
}
