package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddOneAndSum(t *testing.T) {
	data := make([]int32, 8)
	FillIndex(data, 0)
	assert.Equal(t, int64(36), AddOneAndSum(data))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, data)

	assert.Zero(t, AddOneAndSum(nil))
}

func TestAddOneAndSum_Wraps(t *testing.T) {
	data := []int32{math.MaxInt32}
	assert.Equal(t, int64(math.MinInt32), AddOneAndSum(data))
	assert.Equal(t, int32(math.MinInt32), data[0])
}

func TestUpdatePosVel(t *testing.T) {
	pos := make([]int32, 4)
	vel := make([]int32, 4)
	FillIndex(pos, 0)
	FillVelocity(vel, 0)
	assert.Equal(t, []int32{1, 2, 1, 2}, vel)

	// pos becomes 0+2, 1+4, 2+2, 3+4
	assert.Equal(t, int64(2+5+4+7), UpdatePosVel(pos, vel, 2))
	assert.Equal(t, []int32{2, 5, 4, 7}, pos)
}

func TestUpdatePosVel_ShortVelocity(t *testing.T) {
	pos := []int32{10, 10, 10}
	vel := []int32{1}
	assert.Equal(t, int64(11), UpdatePosVel(pos, vel, 1))
	assert.Equal(t, []int32{11, 10, 10}, pos)
}

func TestFillOffsets(t *testing.T) {
	data := make([]int32, 3)
	FillIndex(data, 5)
	assert.Equal(t, []int32{5, 6, 7}, data)
	FillVelocity(data, 5)
	assert.Equal(t, []int32{2, 1, 2}, data)
	assert.Equal(t, int64(5), Sum(data))
}
