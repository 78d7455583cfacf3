//go:build linux

package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCPUList(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3, 8, 10, 11}, parseCPUList("0-3,8,10-11"))
	assert.Equal(t, []int{5}, parseCPUList("5"))
	assert.Nil(t, parseCPUList(""))
	assert.Equal(t, []int{1}, parseCPUList("x,1"))
}
