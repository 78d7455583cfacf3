// File: core/kernel/kernel.go
// Package kernel holds the per-slice inner loops run by the reduction engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Kernels take already bounds-checked sub-slices; indexing inside the loops is
// therefore free of per-element range validation after the first access.
// Element arithmetic is int32, sums are int64; both wrap on overflow.

package kernel

// AddOneAndSum increments every element and returns the sum of the updated values.
func AddOneAndSum(data []int32) int64 {
	var sum int64
	for i := range data {
		data[i]++
		sum += int64(data[i])
	}
	return sum
}

// UpdatePosVel advances pos[i] by vel[i]*dt and returns the sum of the new
// positions. Only the common prefix of pos and vel is processed.
func UpdatePosVel(pos, vel []int32, dt int32) int64 {
	n := min(len(pos), len(vel))
	pos, vel = pos[:n], vel[:n]
	var sum int64
	for i := range pos {
		pos[i] += vel[i] * dt
		sum += int64(pos[i])
	}
	return sum
}

// Sum returns the wrapping int64 sum of data.
func Sum(data []int32) int64 {
	var sum int64
	for _, v := range data {
		sum += int64(v)
	}
	return sum
}

// FillIndex sets data[i] = int32(offset+i).
func FillIndex(data []int32, offset int) {
	for i := range data {
		data[i] = int32(offset + i)
	}
}

// FillVelocity sets data[i] = ((offset+i)&1)+1, the alternating 1,2 pattern
// used for archetype velocities.
func FillVelocity(data []int32, offset int) {
	for i := range data {
		data[i] = int32((offset+i)&1) + 1
	}
}
