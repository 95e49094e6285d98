package core

import (
	"encoding/binary"
	"encoding/json"
	"math/big"

	"github.com/axiomesh/grants/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	// kMeta prefixes singleton records
	kMeta byte = 0x00
	// kDistribution stores DistributionPeriod records by id
	kDistribution byte = 0x01
	// kProposal stores proposalRecord values by proposal id
	kProposal byte = 0x02
	// kTopTen stores the ranked screening list of a period
	kTopTen byte = 0x03
	// kSlate stores proposal id lists by slate hash
	kSlate byte = 0x04
	// kVoter stores Voter records by period and account
	kVoter byte = 0x05
	// kExtraordinaryVote flags accounts that voted on an extraordinary proposal
	kExtraordinaryVote byte = 0x06
)

var (
	keyCurrentDistribution = []byte{kMeta, 'd'}
	keyTreasury            = []byte{kMeta, 't'}
	keyFundedExtraordinary = []byte{kMeta, 'e'}
	keyKeeperLastBlock     = []byte{kMeta, 'k'}
)

func packU64(prefix byte, n uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = prefix
	binary.BigEndian.PutUint64(buf[1:], n)
	return buf
}

func distributionKey(id uint64) []byte {
	return packU64(kDistribution, id)
}

func topTenKey(id uint64) []byte {
	return packU64(kTopTen, id)
}

func proposalKey(id common.Hash) []byte {
	return append([]byte{kProposal}, id.Bytes()...)
}

func slateKey(hash common.Hash) []byte {
	return append([]byte{kSlate}, hash.Bytes()...)
}

func voterKey(distributionID uint64, account common.Address) []byte {
	return append(packU64(kVoter, distributionID), account.Bytes()...)
}

func extraordinaryVoteKey(proposalID common.Hash, account common.Address) []byte {
	key := append([]byte{kExtraordinaryVote}, proposalID.Bytes()...)
	return append(key, account.Bytes()...)
}

// state is the typed view over the key/value store used by a single
// operation. Events collected here are published only if the operation
// commits.
type state struct {
	kv     storage.KVStore
	block  uint64
	events []Event
}

func newState(kv storage.KVStore, block uint64) *state {
	return &state{kv: kv, block: block}
}

func (s *state) emit(typ EventType, data any) {
	s.events = append(s.events, Event{Type: typ, Block: s.block, Data: data})
}

func (s *state) load(key []byte, v any) (bool, error) {
	raw := s.kv.Get(key)
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, errors.Wrapf(err, "decode record %x", key)
	}
	return true, nil
}

func (s *state) store(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode record %x", key)
	}
	s.kv.Put(key, raw)
	return nil
}

func (s *state) treasury() Treasury {
	return Treasury{s: s}
}

func (s *state) currentDistributionID() uint64 {
	raw := s.kv.Get(keyCurrentDistribution)
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func (s *state) setCurrentDistributionID(id uint64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	s.kv.Put(keyCurrentDistribution, buf)
}

func (s *state) distribution(id uint64) (*DistributionPeriod, error) {
	d := &DistributionPeriod{}
	ok, err := s.load(distributionKey(id), d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrDistributionNotFound, "distribution %d", id)
	}
	d.normalize()
	return d, nil
}

// currentDistribution returns the latest period, or nil if none was started.
func (s *state) currentDistribution() (*DistributionPeriod, error) {
	id := s.currentDistributionID()
	if id == 0 {
		return nil, nil
	}
	return s.distribution(id)
}

func (s *state) putDistribution(d *DistributionPeriod) error {
	return s.store(distributionKey(d.ID), d)
}

func (s *state) hasProposal(id common.Hash) bool {
	return s.kv.Has(proposalKey(id))
}

func (s *state) proposal(id common.Hash) (*proposalRecord, error) {
	rec := &proposalRecord{}
	ok, err := s.load(proposalKey(id), rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrProposalNotFound, "proposal %s", id.Hex())
	}
	switch rec.Mechanism {
	case Standard:
		if rec.Standard == nil {
			return nil, errors.Errorf("standard proposal %s has no payload", id.Hex())
		}
		rec.Standard.normalize()
	case Extraordinary:
		if rec.Extraordinary == nil {
			return nil, errors.Errorf("extraordinary proposal %s has no payload", id.Hex())
		}
		rec.Extraordinary.normalize()
	default:
		return nil, errors.Errorf("proposal %s has unknown mechanism %d", id.Hex(), rec.Mechanism)
	}
	return rec, nil
}

func (s *state) standardProposal(id common.Hash) (*Proposal, error) {
	rec, err := s.proposal(id)
	if err != nil {
		return nil, err
	}
	if rec.Mechanism != Standard {
		return nil, errors.Wrapf(ErrMechanismMismatch, "proposal %s is %s", id.Hex(), rec.Mechanism)
	}
	return rec.Standard, nil
}

func (s *state) extraordinaryProposal(id common.Hash) (*ExtraordinaryProposal, error) {
	rec, err := s.proposal(id)
	if err != nil {
		return nil, err
	}
	if rec.Mechanism != Extraordinary {
		return nil, errors.Wrapf(ErrMechanismMismatch, "proposal %s is %s", id.Hex(), rec.Mechanism)
	}
	return rec.Extraordinary, nil
}

func (s *state) putStandardProposal(p *Proposal) error {
	return s.store(proposalKey(p.ProposalID), &proposalRecord{Mechanism: Standard, Standard: p})
}

func (s *state) putExtraordinaryProposal(p *ExtraordinaryProposal) error {
	return s.store(proposalKey(p.ProposalID), &proposalRecord{Mechanism: Extraordinary, Extraordinary: p})
}

func (s *state) topTen(distributionID uint64) ([]common.Hash, error) {
	var list []common.Hash
	if _, err := s.load(topTenKey(distributionID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *state) putTopTen(distributionID uint64, list []common.Hash) error {
	return s.store(topTenKey(distributionID), list)
}

func (s *state) slate(hash common.Hash) ([]common.Hash, error) {
	var list []common.Hash
	if hash == (common.Hash{}) {
		return nil, nil
	}
	if _, err := s.load(slateKey(hash), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *state) putSlate(hash common.Hash, list []common.Hash) error {
	return s.store(slateKey(hash), list)
}

// voter returns the account's record for the period, zero valued if the
// account has not participated yet.
func (s *state) voter(distributionID uint64, account common.Address) (*Voter, error) {
	v := &Voter{}
	if _, err := s.load(voterKey(distributionID, account), v); err != nil {
		return nil, err
	}
	v.normalize()
	return v, nil
}

func (s *state) putVoter(distributionID uint64, account common.Address, v *Voter) error {
	return s.store(voterKey(distributionID, account), v)
}

func (s *state) hasVotedExtraordinary(proposalID common.Hash, account common.Address) bool {
	return s.kv.Has(extraordinaryVoteKey(proposalID, account))
}

func (s *state) markVotedExtraordinary(proposalID common.Hash, account common.Address) {
	s.kv.Put(extraordinaryVoteKey(proposalID, account), []byte{1})
}

func (s *state) fundedExtraordinary() ([]common.Hash, error) {
	var list []common.Hash
	if _, err := s.load(keyFundedExtraordinary, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *state) putFundedExtraordinary(list []common.Hash) error {
	return s.store(keyFundedExtraordinary, list)
}

func (s *state) bigValue(key []byte) (*big.Int, error) {
	v := new(big.Int)
	if _, err := s.load(key, v); err != nil {
		return nil, err
	}
	return v, nil
}
