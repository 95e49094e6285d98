package main

import (
	"context"
	"math/big"
	"strings"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/grants/core"
	"github.com/axiomesh/grants/repo"
	"github.com/axiomesh/grants/storage"
	"github.com/axiomesh/grants/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// node wires the fund to its chain client, token and state database.
type node struct {
	repo     *repo.Repo
	logger   *logrus.Logger
	client   *ethclient.Client
	token    *token.ERC20
	db       *storage.LevelDB
	fund     *core.GrantFund
	registry *prometheus.Registry
}

func newNode(ctx *cli.Context) (*node, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}
	cfg := r.Config

	logger := log.New()
	logger.SetLevel(log.ParseLevel(cfg.Log.Level))

	client, err := ethclient.DialContext(ctx.Context, cfg.DialUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", cfg.DialUrl)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Token.PrivateKey, "0x"))
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "load custody key")
	}
	tok, err := token.NewERC20(common.HexToAddress(cfg.Token.Address), client, key, new(big.Int).SetUint64(cfg.Token.ChainID), logger.WithField("module", "token"))
	if err != nil {
		client.Close()
		return nil, err
	}

	db, err := storage.OpenLevelDB(r.StoragePath())
	if err != nil {
		client.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	fund, err := core.NewGrantFund(db, tok, client, tok.Custody(),
		core.WithParams(core.ParamsFromConfig(cfg.Funding)),
		core.WithLogger(logger.WithField("module", "fund")),
		core.WithRegisterer(registry),
	)
	if err != nil {
		_ = db.Close()
		client.Close()
		return nil, err
	}

	return &node{
		repo:     r,
		logger:   logger,
		client:   client,
		token:    tok,
		db:       db,
		fund:     fund,
		registry: registry,
	}, nil
}

// newKeeper follows heads of the node's client and redials the configured
// endpoint when the subscription drops.
func (n *node) newKeeper(ctx context.Context) *core.Keeper {
	k := core.NewKeeper(ctx, n.repo.Config.Keeper, n.fund, n.client, n.db, n.logger.WithField("module", "keeper"))
	k.Dial = func(ctx context.Context) (core.HeadClient, error) {
		return ethclient.DialContext(ctx, n.repo.Config.DialUrl)
	}
	return k
}

func (n *node) Close() error {
	n.client.Close()
	return n.db.Close()
}

// withNode runs fn against a node that is closed afterwards.
func withNode(fn func(ctx *cli.Context, n *node) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		n, err := newNode(ctx)
		if err != nil {
			return err
		}
		defer n.Close()
		return fn(ctx, n)
	}
}
