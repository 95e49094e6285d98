package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var treasuryCMD = &cli.Command{
	Name:  "treasury",
	Usage: "The treasury manage commands",
	Subcommands: []*cli.Command{
		{
			Name:  "fund",
			Usage: "Move tokens from an approved account into the treasury",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Usage: "Account the tokens are pulled from", Required: true},
				&cli.StringFlag{Name: "amount", Usage: "Amount in token base units", Required: true},
			},
			Action: withNode(fundTreasury),
		},
		{
			Name:   "show",
			Usage:  "Show the treasury and custody balance",
			Action: withNode(showTreasury),
		},
	},
}

var periodCMD = &cli.Command{
	Name:  "period",
	Usage: "The distribution period commands",
	Subcommands: []*cli.Command{
		{
			Name:   "start",
			Usage:  "Start a new distribution period",
			Action: withNode(startPeriod),
		},
		{
			Name:  "info",
			Usage: "Show a distribution period, the current one by default",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "id", Usage: "Distribution period id"},
			},
			Action: withNode(showPeriod),
		},
	},
}

var rewardCMD = &cli.Command{
	Name:  "reward",
	Usage: "The delegate reward commands",
	Subcommands: []*cli.Command{
		{
			Name:  "claim",
			Usage: "Claim the delegate reward of a finished distribution period",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "voter", Required: true},
				&cli.Uint64Flag{Name: "id", Usage: "Distribution period id", Required: true},
			},
			Action: withNode(claimReward),
		},
		{
			Name:  "show",
			Usage: "Show the delegate reward a voter is entitled to",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "voter", Required: true},
				&cli.Uint64Flag{Name: "id", Usage: "Distribution period id", Required: true},
			},
			Action: withNode(showReward),
		},
	},
}

func fundTreasury(ctx *cli.Context, n *node) error {
	from, err := parseAddress(ctx.String("from"))
	if err != nil {
		return err
	}
	amount, err := parseAmount(ctx.String("amount"))
	if err != nil {
		return err
	}
	if err := n.fund.FundTreasury(ctx.Context, from, amount); err != nil {
		return err
	}
	return showTreasury(ctx, n)
}

func showTreasury(ctx *cli.Context, n *node) error {
	treasury, err := n.fund.Treasury(ctx.Context)
	if err != nil {
		return err
	}
	custody, err := n.fund.CustodyBalance(ctx.Context)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"treasury": treasury,
		"custody":  custody,
	})
}

func startPeriod(ctx *cli.Context, n *node) error {
	id, err := n.fund.StartNewDistributionPeriod(ctx.Context)
	if err != nil {
		return err
	}
	return describePeriod(ctx, n, id)
}

func showPeriod(ctx *cli.Context, n *node) error {
	id := ctx.Uint64("id")
	if !ctx.IsSet("id") {
		current, err := n.fund.CurrentDistributionID(ctx.Context)
		if err != nil {
			return err
		}
		id = current
	}
	return describePeriod(ctx, n, id)
}

func describePeriod(ctx *cli.Context, n *node, id uint64) error {
	dp, err := n.fund.DistributionPeriodInfo(ctx.Context, id)
	if err != nil {
		return err
	}
	stage, err := n.fund.Stage(ctx.Context, id)
	if err != nil {
		return err
	}
	topTen, err := n.fund.TopTenProposals(ctx.Context, id)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"period":                dp,
		"stage":                 stage.String(),
		"screening_end_block":   n.fund.ScreeningStageEndBlock(dp.EndBlock),
		"challenge_start_block": n.fund.ChallengeStageStartBlock(dp.EndBlock),
		"challenge_end_block":   n.fund.ChallengeStageEndBlock(dp.EndBlock),
		"top_ten":               topTen,
	})
}

func claimReward(ctx *cli.Context, n *node) error {
	voter, err := parseAddress(ctx.String("voter"))
	if err != nil {
		return err
	}
	reward, err := n.fund.ClaimDelegateReward(ctx.Context, voter, ctx.Uint64("id"))
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"claimed": reward})
}

func showReward(ctx *cli.Context, n *node) error {
	voter, err := parseAddress(ctx.String("voter"))
	if err != nil {
		return err
	}
	reward, err := n.fund.DelegateReward(ctx.Context, ctx.Uint64("id"), voter)
	if err != nil {
		return err
	}
	info, err := n.fund.VoterInfo(ctx.Context, ctx.Uint64("id"), voter)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"reward":  reward,
		"claimed": info.RewardClaimed,
	})
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("invalid proposal id %q", s)
	}
	return common.BytesToHash(b), nil
}

// parseAmount accepts decimal or 0x prefixed hex amounts.
func parseAmount(s string) (*big.Int, error) {
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseSignedAmount(s string) (*big.Int, error) {
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		v, err := parseAmount(rest)
		if err != nil {
			return nil, err
		}
		return v.Neg(v), nil
	}
	return parseAmount(s)
}

// splitPair splits "KEY:VALUE" arguments of repeatable flags.
func splitPair(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, ":")
	if !ok || k == "" || v == "" {
		return "", "", errors.Errorf("expected KEY:VALUE, got %q", s)
	}
	return k, v, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
