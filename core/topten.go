package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// maxTopTen bounds the screened list of a distribution period.
const maxTopTen = 10

type ranked struct {
	id    common.Hash
	votes *big.Int
}

// rankProposal records that id now has votes and keeps list sorted by votes,
// descending, with at most maxTopTen entries. Screening votes only ever grow,
// so the changed entry can only move toward the front; ties keep the earlier
// entry ahead.
func rankProposal(list []ranked, id common.Hash, votes *big.Int) []ranked {
	idx := -1
	for i := range list {
		if list[i].id == id {
			idx = i
			break
		}
	}

	switch {
	case idx >= 0:
		list[idx].votes = votes
	case len(list) < maxTopTen:
		list = append(list, ranked{id: id, votes: votes})
		idx = len(list) - 1
	case votes.Cmp(list[len(list)-1].votes) > 0:
		idx = len(list) - 1
		list[idx] = ranked{id: id, votes: votes}
	default:
		return list
	}

	for i := idx; i > 0 && list[i].votes.Cmp(list[i-1].votes) > 0; i-- {
		list[i], list[i-1] = list[i-1], list[i]
	}
	return list
}

// loadRanking resolves the stored top ten of a period with current votes.
func loadRanking(s *state, distributionID uint64) ([]ranked, error) {
	ids, err := s.topTen(distributionID)
	if err != nil {
		return nil, err
	}
	list := make([]ranked, 0, len(ids))
	for _, id := range ids {
		p, err := s.standardProposal(id)
		if err != nil {
			return nil, err
		}
		list = append(list, ranked{id: id, votes: p.VotesReceived})
	}
	return list, nil
}

func storeRanking(s *state, distributionID uint64, list []ranked) error {
	ids := make([]common.Hash, len(list))
	for i, r := range list {
		ids[i] = r.id
	}
	return s.putTopTen(distributionID, ids)
}
