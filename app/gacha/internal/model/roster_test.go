package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRosterIndex(t *testing.T) {
	r := NewRoster([]MaidenDefinition{
		{ID: 30, Name: "c", Tier: 2},
		{ID: 10, Name: "a", Tier: 1},
		{ID: 20, Name: "b", Tier: 2},
		{ID: 40, Name: "d", Tier: 5},
	})

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, []int{1, 2, 5}, r.Tiers())
	assert.True(t, r.HasTier(5))
	assert.False(t, r.HasTier(3))

	tier2 := r.ByTier(2)
	assert.Len(t, tier2, 2)
	assert.Equal(t, int64(20), tier2[0].ID)
	assert.Equal(t, int64(30), tier2[1].ID)

	d, ok := r.Get(40)
	assert.True(t, ok)
	assert.Equal(t, "d", d.Name)
	_, ok = r.Get(99)
	assert.False(t, ok)
}

func TestPlayerObserveTier(t *testing.T) {
	p := NewPlayer(1)
	assert.Equal(t, 1, p.Level)
	p.ObserveTier(3)
	p.ObserveTier(2)
	assert.Equal(t, 3, p.HighestTier)
}
