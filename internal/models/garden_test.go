package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcGardenLevel(t *testing.T) {
	cases := []struct {
		count int
		level int
	}{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, 1},
		{5, 1},
		{9, 3},
		{21, 7},
		{30, 10},
		{99, 10},
		{-1, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, CalcGardenLevel(tc.count), "count=%d", tc.count)
	}
}

func TestGrowthStageFor(t *testing.T) {
	cases := []struct {
		count int
		index int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{7, 2},
		{8, 3},
		{12, 3},
		{13, 4},
		{19, 4},
		{20, 5},
		{50, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.index, GrowthStageFor(tc.count).Index, "count=%d", tc.count)
	}
}

func TestGrowthStageTableOrdered(t *testing.T) {
	stages := GrowthStages()
	assert.Len(t, stages, 6)
	for i := 1; i < len(stages); i++ {
		assert.Greater(t, stages[i].Threshold, stages[i-1].Threshold)
	}
}
