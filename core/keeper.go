package core

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/grants/repo"
	"github.com/axiomesh/grants/storage"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const HeadChanMaxSize = 100

// DialFunc opens a new head subscription client after the previous one failed.
type DialFunc func(ctx context.Context) (HeadClient, error)

// Keeper follows chain heads and drives the time based parts of the fund:
// it reports stage changes of the current distribution period and, if
// enabled, starts the next period once the current one has ended.
type Keeper struct {
	Ctx    context.Context
	Client HeadClient
	Logger logrus.FieldLogger
	DB     storage.Backend
	Fund   *GrantFund
	Config repo.Keeper
	Dial   DialFunc

	cancel    context.CancelFunc
	headChan  chan *types.Header
	headSub   ethereum.Subscription
	lastStage Stage
	lastDist  uint64
	wg        sync.WaitGroup
}

func NewKeeper(ctx context.Context, config repo.Keeper, fund *GrantFund, client HeadClient, db storage.Backend, logger logrus.FieldLogger) *Keeper {
	ctx, cancel := context.WithCancel(ctx)
	return &Keeper{
		Ctx:      ctx,
		Client:   client,
		Logger:   logger,
		DB:       db,
		Fund:     fund,
		Config:   config,
		cancel:   cancel,
		headChan: make(chan *types.Header, HeadChanMaxSize),
	}
}

func (k *Keeper) Start() error {
	number, err := k.Client.BlockNumber(k.Ctx)
	if err != nil {
		return errors.Wrap(err, "get block number")
	}
	if last := k.LastBlock(); last != 0 {
		k.Logger.Infof("resume from block %d, head is %d", last, number)
	}
	k.handleHead(number)

	if err := k.subscribeHead(); err != nil {
		return err
	}

	k.wg.Add(1)
	go k.listenHeads()

	return nil
}

func (k *Keeper) Stop() error {
	k.cancel()
	k.wg.Wait()
	if k.headSub != nil {
		k.headSub.Unsubscribe()
	}
	k.Logger.Info("keeper stopped")
	return nil
}

func (k *Keeper) subscribeHead() error {
	var err error
	k.headSub, err = k.Client.SubscribeNewHead(k.Ctx, k.headChan)
	return errors.Wrap(err, "subscribe new head")
}

func (k *Keeper) listenHeads() {
	defer k.wg.Done()
	k.Logger.Info("listen heads")

	for {
		select {
		case <-k.Ctx.Done():
			k.Logger.Info("context done")
			return
		case err := <-k.headSub.Err():
			k.Logger.Errorf("head subscription: %s", err)
			if err := k.reconnect(); err != nil {
				if k.Ctx.Err() == nil {
					k.Logger.Errorf("reconnect failed: %s", err)
				}
				return
			}
		case head := <-k.headChan:
			k.handleHead(head.Number.Uint64())
		}
	}
}

// reconnect replaces the client and subscription, retrying with backoff.
func (k *Keeper) reconnect() error {
	k.headSub.Unsubscribe()
	if k.Dial == nil {
		return errors.New("no dialer configured")
	}

	action := func(attempt uint) error {
		if err := k.Ctx.Err(); err != nil {
			return err
		}
		client, err := k.Dial(k.Ctx)
		if err != nil {
			k.Logger.Warnf("dial attempt %d: %s", attempt, err)
			return err
		}
		k.Client = client
		if err := k.subscribeHead(); err != nil {
			k.Logger.Warnf("subscribe attempt %d: %s", attempt, err)
			return err
		}
		return nil
	}
	attempts := k.Config.ReconnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Retry(action, strategy.Limit(attempts), k.backoff(backoff.Fibonacci(k.Config.ReconnectBackoff)))
}

// backoff waits like strategy.Backoff but gives up as soon as the keeper stops.
func (k *Keeper) backoff(algorithm backoff.Algorithm) strategy.Strategy {
	return func(attempt uint) bool {
		if attempt == 0 {
			return true
		}
		timer := time.NewTimer(algorithm(attempt))
		defer timer.Stop()
		select {
		case <-k.Ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}
}

func (k *Keeper) handleHead(number uint64) {
	if number <= k.LastBlock() {
		return
	}
	ctx, cancel := context.WithTimeout(k.Ctx, 30*time.Second)
	defer cancel()

	id, err := k.Fund.CurrentDistributionID(ctx)
	if err != nil {
		k.Logger.Errorf("get current distribution: %s", err)
		return
	}

	if id != 0 {
		stage, err := k.Fund.Stage(ctx, id)
		if err != nil {
			k.Logger.Errorf("get stage of distribution %d: %s", id, err)
			return
		}
		if id != k.lastDist || stage != k.lastStage {
			k.Logger.WithFields(logrus.Fields{"distribution_id": id, "block": number}).Infof("distribution stage is %s", stage)
			k.lastDist, k.lastStage = id, stage
		}
	}

	if k.Config.AutoStartPeriod && k.periodEnded(ctx, id) {
		newID, err := k.Fund.StartNewDistributionPeriod(ctx)
		if err != nil {
			k.Logger.Errorf("start distribution period at block %d: %s", number, err)
			return
		}
		k.Logger.WithField("distribution_id", newID).Infof("started distribution period at block %d", number)
		k.lastDist, k.lastStage = newID, StageScreening
	}

	k.setLastBlock(number)
}

func (k *Keeper) periodEnded(ctx context.Context, id uint64) bool {
	if id == 0 {
		return true
	}
	stage, err := k.Fund.Stage(ctx, id)
	if err != nil {
		k.Logger.Errorf("get stage of distribution %d: %s", id, err)
		return false
	}
	return stage == StageChallenge || stage == StageClosed
}

// LastBlock is the last head the keeper processed, persisted across restarts.
func (k *Keeper) LastBlock() uint64 {
	data := k.DB.Get(keyKeeperLastBlock)
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func (k *Keeper) setLastBlock(number uint64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, number)
	k.DB.Put(keyKeeperLastBlock, buf)
}
