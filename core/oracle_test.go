package core

import (
	"context"
	"testing"

	"github.com/axiomesh/grants/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotingPowerOracle(t *testing.T) {
	ctx := context.Background()
	tok := token.NewMemory(tokenAddr, custody)
	oracle := NewVotingPowerOracle(tok, 3)

	tok.Mint(alice, tokens(100))
	tok.SetBlock(20)
	// borrowed right before the stage starts
	tok.Mint(alice, tokens(900))
	tok.SetBlock(21)
	require.Nil(t, tok.TransferOwned(alice, bob, tokens(900)))
	tok.SetBlock(30)

	tests := []struct {
		name     string
		account  string
		start    uint64
		current  uint64
		expected int64
	}{
		{"before any history", "alice", 1, 30, 0},
		{"stable balance", "alice", 10, 30, 100},
		{"balance spike at the start block", "alice", 20, 30, 100},
		{"received after the snapshot", "bob", 22, 30, 0},
		{"received well before", "bob", 29, 30, 900},
		{"start is the current block", "bob", 30, 30, 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := alice
			if tt.account == "bob" {
				account = bob
			}
			power, err := oracle.AtStageStart(ctx, account, tt.start, tt.current)
			require.Nil(t, err)
			assertAmount(t, tokens(tt.expected), power)
		})
	}

	_, err := oracle.Power(ctx, alice, 10, 31, 30)
	assert.NotNil(t, err, "future block")
}
