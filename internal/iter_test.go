package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	a := map[string]int{"a": 1}
	b := map[string]int{"b": 2, "c": 3}

	got := maps.Collect(IterSeq2Concat(maps.All(a), maps.All(b)))
	assert.Equal(map[string]int{"a": 1, "b": 2, "c": 3}, got)

	count := 0
	for range IterSeq2Concat(maps.All(a), maps.All(b)) {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestIterSeq2First(t *testing.T) {
	assert := assert.New(t)

	a := map[string]int{"x": 1}
	b := map[string]int{"x": 2, "y": 3}

	got := maps.Collect(IterSeq2First(IterSeq2Concat(maps.All(a), maps.All(b))))
	assert.Equal(map[string]int{"x": 1, "y": 3}, got)
}
