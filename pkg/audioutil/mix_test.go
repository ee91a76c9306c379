package audioutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	dst := []float32{1, 2, 3}
	Add(dst, []float32{10, 20, 30})
	assert.Equal(t, []float32{11, 22, 33}, dst)
}

func TestClear(t *testing.T) {
	dst := []float32{1, 2, 3}
	Clear(dst)
	assert.Equal(t, []float32{0, 0, 0}, dst)
}
