package main

import (
	"math/big"

	"github.com/axiomesh/grants/core"
	"github.com/axiomesh/grants/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func callFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "transfer",
			Usage:    "Token transfer paid on execution as RECIPIENT:AMOUNT, repeatable",
			Required: true,
		},
		&cli.StringFlag{Name: "description", Required: true},
		&cli.BoolFlag{Name: "extraordinary", Usage: "Use the extraordinary funding mechanism"},
	}
}

var proposalCMD = &cli.Command{
	Name:  "proposal",
	Usage: "The proposal commands",
	Subcommands: []*cli.Command{
		{
			Name:  "submit",
			Usage: "Submit a proposal",
			Flags: append(callFlags(),
				&cli.StringFlag{Name: "proposer", Required: true},
				&cli.Uint64Flag{Name: "end-block", Usage: "Last voting block of an extraordinary proposal"},
			),
			Action: withNode(submitProposal),
		},
		{
			Name:   "execute",
			Usage:  "Execute a successful proposal",
			Flags:  callFlags(),
			Action: withNode(executeProposal),
		},
		{
			Name:  "info",
			Usage: "Show a proposal",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Required: true},
			},
			Action: withNode(showProposal),
		},
	},
}

var voteCMD = &cli.Command{
	Name:  "vote",
	Usage: "The voting commands",
	Subcommands: []*cli.Command{
		{
			Name:  "screening",
			Usage: "Cast screening votes",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "voter", Required: true},
				&cli.StringSliceFlag{Name: "vote", Usage: "PROPOSAL:VOTES, repeatable", Required: true},
			},
			Action: withNode(screeningVote),
		},
		{
			Name:  "funding",
			Usage: "Cast quadratic funding votes, negative votes oppose a proposal",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "voter", Required: true},
				&cli.StringSliceFlag{Name: "vote", Usage: "PROPOSAL:VOTES, repeatable", Required: true},
			},
			Action: withNode(fundingVote),
		},
		{
			Name:  "extraordinary",
			Usage: "Vote for an extraordinary proposal with the full voting power",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "voter", Required: true},
				&cli.StringFlag{Name: "id", Required: true},
			},
			Action: withNode(extraordinaryVote),
		},
	},
}

var slateCMD = &cli.Command{
	Name:  "slate",
	Usage: "The funded slate commands",
	Subcommands: []*cli.Command{
		{
			Name:  "update",
			Usage: "Propose a better funded slate during the challenge stage",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "id", Usage: "Distribution period id", Required: true},
				&cli.StringSliceFlag{Name: "proposal", Usage: "Proposal id, repeatable", Required: true},
			},
			Action: withNode(updateSlate),
		},
		{
			Name:  "show",
			Usage: "Show the funded slate of a distribution period",
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "id", Usage: "Distribution period id", Required: true},
			},
			Action: withNode(showSlate),
		},
	},
}

type calls struct {
	targets   []common.Address
	values    []*big.Int
	calldatas [][]byte
}

func parseCalls(ctx *cli.Context, tokenAddress common.Address) (*calls, error) {
	c := &calls{}
	for _, arg := range ctx.StringSlice("transfer") {
		to, amount, err := splitPair(arg)
		if err != nil {
			return nil, err
		}
		recipient, err := parseAddress(to)
		if err != nil {
			return nil, err
		}
		value, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		data, err := token.EncodeTransfer(recipient, value)
		if err != nil {
			return nil, err
		}
		c.targets = append(c.targets, tokenAddress)
		c.values = append(c.values, new(big.Int))
		c.calldatas = append(c.calldatas, data)
	}
	return c, nil
}

func mechanism(ctx *cli.Context) core.FundingMechanism {
	if ctx.Bool("extraordinary") {
		return core.Extraordinary
	}
	return core.Standard
}

func submitProposal(ctx *cli.Context, n *node) error {
	proposer, err := parseAddress(ctx.String("proposer"))
	if err != nil {
		return err
	}
	c, err := parseCalls(ctx, n.token.Address())
	if err != nil {
		return err
	}
	description := ctx.String("description")

	var id common.Hash
	switch mechanism(ctx) {
	case core.Extraordinary:
		if !ctx.IsSet("end-block") {
			return errors.New("extraordinary proposals need --end-block")
		}
		id, err = n.fund.ProposeExtraordinary(ctx.Context, proposer, ctx.Uint64("end-block"), c.targets, c.values, c.calldatas, description)
	default:
		id, err = n.fund.ProposeStandard(ctx.Context, proposer, c.targets, c.values, c.calldatas, description)
	}
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"proposal_id": id})
}

func executeProposal(ctx *cli.Context, n *node) error {
	c, err := parseCalls(ctx, n.token.Address())
	if err != nil {
		return err
	}
	m := mechanism(ctx)
	descriptionHash := core.DescriptionHash(m, ctx.String("description"))

	var id common.Hash
	switch m {
	case core.Extraordinary:
		id, err = n.fund.ExecuteExtraordinary(ctx.Context, c.targets, c.values, c.calldatas, descriptionHash)
	default:
		id, err = n.fund.ExecuteStandard(ctx.Context, c.targets, c.values, c.calldatas, descriptionHash)
	}
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"executed": id})
}

func showProposal(ctx *cli.Context, n *node) error {
	id, err := parseHash(ctx.String("id"))
	if err != nil {
		return err
	}
	m, err := n.fund.FindMechanismOfProposal(ctx.Context, id)
	if err != nil {
		return err
	}
	state, err := n.fund.State(ctx.Context, id)
	if err != nil {
		return err
	}

	var info any
	switch m {
	case core.Extraordinary:
		info, err = n.fund.ExtraordinaryProposalInfo(ctx.Context, id)
	default:
		info, err = n.fund.ProposalInfo(ctx.Context, id)
	}
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"mechanism": m.String(),
		"state":     state.String(),
		"proposal":  info,
	})
}

func screeningVote(ctx *cli.Context, n *node) error {
	voter, err := parseAddress(ctx.String("voter"))
	if err != nil {
		return err
	}
	var votes []core.ScreeningVoteParams
	for _, arg := range ctx.StringSlice("vote") {
		k, v, err := splitPair(arg)
		if err != nil {
			return err
		}
		id, err := parseHash(k)
		if err != nil {
			return err
		}
		amount, err := parseAmount(v)
		if err != nil {
			return err
		}
		votes = append(votes, core.ScreeningVoteParams{ProposalID: id, Votes: amount})
	}
	cast, err := n.fund.ScreeningVote(ctx.Context, voter, votes)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"votes_cast": cast})
}

func fundingVote(ctx *cli.Context, n *node) error {
	voter, err := parseAddress(ctx.String("voter"))
	if err != nil {
		return err
	}
	var votes []core.FundingVoteParams
	for _, arg := range ctx.StringSlice("vote") {
		k, v, err := splitPair(arg)
		if err != nil {
			return err
		}
		id, err := parseHash(k)
		if err != nil {
			return err
		}
		amount, err := parseSignedAmount(v)
		if err != nil {
			return err
		}
		votes = append(votes, core.FundingVoteParams{ProposalID: id, VotesUsed: amount})
	}
	spent, err := n.fund.FundingVote(ctx.Context, voter, votes)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"voting_power_spent": spent})
}

func extraordinaryVote(ctx *cli.Context, n *node) error {
	voter, err := parseAddress(ctx.String("voter"))
	if err != nil {
		return err
	}
	id, err := parseHash(ctx.String("id"))
	if err != nil {
		return err
	}
	votes, err := n.fund.ExtraordinaryVote(ctx.Context, voter, id)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"votes_cast": votes})
}

func updateSlate(ctx *cli.Context, n *node) error {
	var ids []common.Hash
	for _, arg := range ctx.StringSlice("proposal") {
		id, err := parseHash(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	updated, err := n.fund.UpdateSlate(ctx.Context, ids, ctx.Uint64("id"))
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"updated":    updated,
		"slate_hash": core.SlateHash(ids),
	})
}

func showSlate(ctx *cli.Context, n *node) error {
	dp, err := n.fund.DistributionPeriodInfo(ctx.Context, ctx.Uint64("id"))
	if err != nil {
		return err
	}
	ids, err := n.fund.FundedProposalSlate(ctx.Context, dp.FundedSlateHash)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"slate_hash": dp.FundedSlateHash,
		"proposals":  ids,
	})
}
