package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPairIsCanonical(t *testing.T) {
	assert.Equal(t, NewPair("a", "b"), NewPair("b", "a"))
	assert.Equal(t, "g1/a/b", NewPair("b", "a").Key("g1"))
}

func TestSortPairs(t *testing.T) {
	got := SortPairs([]Pair{
		NewPair("c", "a"),
		NewPair("b", "a"),
		NewPair("a", "c"),
		NewPair("x", "x"),
	})
	assert.Equal(t, []Pair{{Lo: "a", Hi: "b"}, {Lo: "a", Hi: "c"}}, got)
}
