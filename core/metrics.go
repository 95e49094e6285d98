package core

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fundMetrics struct {
	treasury            prometheus.Gauge
	currentDistribution prometheus.Gauge
	proposals           *prometheus.CounterVec
	votes               *prometheus.CounterVec
	slateUpdates        prometheus.Counter
	executed            *prometheus.CounterVec
	rewardsClaimed      prometheus.Counter
	rejected            *prometheus.CounterVec
}

func (m *fundMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.treasury = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "grants_treasury_balance",
		Help: "undistributed treasury balance in whole tokens",
	})
	m.currentDistribution = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "grants_distribution_id",
		Help: "id of the latest distribution period",
	})
	m.proposals = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "grants_proposals_total",
		Help: "proposals created by funding mechanism",
	}, []string{"mechanism"})
	m.votes = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "grants_votes_total",
		Help: "votes cast by standard funding stage or extraordinary mechanism",
	}, []string{"stage"})
	m.slateUpdates = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "grants_slate_updates_total",
		Help: "number of times a period's funded slate was replaced",
	})
	m.executed = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "grants_proposals_executed_total",
		Help: "proposals executed by funding mechanism",
	}, []string{"mechanism"})
	m.rewardsClaimed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "grants_delegate_rewards_claimed_total",
		Help: "delegate rewards claimed",
	})
	m.rejected = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "grants_operations_rejected_total",
		Help: "operations rejected without state change",
	}, []string{"operation"})
}

func (m *fundMetrics) observe(evt Event) {
	switch data := evt.Data.(type) {
	case DistributionPeriodStartedEvent:
		m.currentDistribution.Set(float64(data.DistributionID))
	case ProposalCreatedEvent:
		m.proposals.WithLabelValues(data.Mechanism.String()).Inc()
	case VoteCastEvent:
		if data.Mechanism == Extraordinary {
			m.votes.WithLabelValues(data.Mechanism.String()).Inc()
		} else {
			m.votes.WithLabelValues(data.Stage.String()).Inc()
		}
	case FundedSlateUpdatedEvent:
		m.slateUpdates.Inc()
	case ProposalExecutedEvent:
		m.executed.WithLabelValues(data.Mechanism.String()).Inc()
	case DelegateRewardClaimedEvent:
		m.rewardsClaimed.Inc()
	}
}

func (m *fundMetrics) setTreasury(balance *big.Int) {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(balance), new(big.Float).SetInt(wad)).Float64()
	m.treasury.Set(f)
}
