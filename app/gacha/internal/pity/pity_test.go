package pity

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
)

func roster() *model.Roster {
	return model.NewRoster([]model.MaidenDefinition{
		{ID: 1, Tier: 1}, {ID: 2, Tier: 1},
		{ID: 3, Tier: 2},
		{ID: 4, Tier: 3},
		{ID: 7, Tier: 5}, {ID: 8, Tier: 5},
	})
}

func TestAdvance(t *testing.T) {
	tr := Tracker{Threshold: 3}

	next, forced := tr.Advance(0)
	assert.Equal(t, 1, next)
	assert.False(t, forced)

	next, forced = tr.Advance(1)
	assert.Equal(t, 2, next)
	assert.False(t, forced)

	next, forced = tr.Advance(2)
	assert.Equal(t, 0, next)
	assert.True(t, forced)

	// 阈值调小后的越界计数
	next, forced = tr.Advance(7)
	assert.Equal(t, 0, next)
	assert.True(t, forced)
}

func TestAdvanceWindow(t *testing.T) {
	tr := Tracker{Threshold: 25}
	counter := 0
	forcedAt := []int{}
	for draw := 1; draw <= 75; draw++ {
		var forced bool
		counter, forced = tr.Advance(counter)
		if forced {
			forcedAt = append(forcedAt, draw)
		}
		assert.Less(t, counter, 25)
	}
	assert.Equal(t, []int{25, 50, 75}, forcedAt)
}

func TestSelectUnowned(t *testing.T) {
	owned := map[int64]int64{1: 2, 3: 1}
	for seed := uint64(0); seed < 20; seed++ {
		sel, err := Select([]int{1, 2, 3}, roster(), owned, sampler.NewSeeded(seed))
		require.NoError(t, err)
		assert.Equal(t, ReasonUnowned, sel.Reason)
		assert.Equal(t, FallbackNone, sel.Fallback)
		assert.Contains(t, []int64{2, 4}, sel.Maiden.ID)
	}
}

func TestSelectNextTier(t *testing.T) {
	owned := map[int64]int64{1: 1, 2: 1, 3: 1, 4: 1}
	sel, err := Select([]int{1, 2, 3}, roster(), owned, sampler.NewSeeded(1))
	require.NoError(t, err)
	assert.Equal(t, ReasonNextTier, sel.Reason)
	assert.Equal(t, 5, sel.Maiden.Tier)
}

func TestSelectDuplicateFallback(t *testing.T) {
	owned := map[int64]int64{1: 1, 2: 1, 3: 1, 4: 1, 7: 1, 8: 3}
	sel, err := Select([]int{1, 2, 3, 4, 5}, roster(), owned, sampler.NewSeeded(1))
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicate, sel.Reason)
	assert.Equal(t, FallbackDuplicate, sel.Fallback)
	assert.Equal(t, 5, sel.Maiden.Tier)
}

func TestSelectEmptyRoster(t *testing.T) {
	_, err := Select([]int{1}, model.NewRoster(nil), nil, sampler.NewSeeded(1))
	assert.True(t, errors.Is(err, errcode.ErrConfiguration))

	_, err = Select(nil, roster(), nil, sampler.NewSeeded(1))
	assert.True(t, errors.Is(err, errcode.ErrConfiguration))
}

// 每个阈值窗口的保底抽必然给出未拥有角色或更高品阶角色
func TestPityWindowGuarantee(t *testing.T) {
	tr := Tracker{Threshold: 10}
	r := roster()
	unlocked := []int{1, 2, 3}
	owned := map[int64]int64{1: 1}
	rnd := sampler.NewSeeded(99)

	counter := 0
	for draw := 0; draw < 10; draw++ {
		var forced bool
		counter, forced = tr.Advance(counter)
		if !forced {
			continue
		}
		sel, err := Select(unlocked, r, owned, rnd)
		require.NoError(t, err)
		isNew := owned[sel.Maiden.ID] == 0
		assert.True(t, isNew || sel.Maiden.Tier > 3)
	}
}
