package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkEmpty(t *testing.T) {
	assert.True(t, Chunk{Start: 100, End: 100}.Empty())
	assert.True(t, Chunk{Start: 100, End: 50}.Empty())
	assert.False(t, Chunk{Start: 100, End: 101}.Empty())
}

func TestChunkOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Chunk
		want bool
	}{
		{"Disjoint", Chunk{0, 50}, Chunk{60, 120}, false},
		{"Touching", Chunk{0, 50}, Chunk{50, 120}, false},
		{"Overlapping", Chunk{0, 50}, Chunk{40, 120}, true},
		{"Contained", Chunk{0, 100}, Chunk{20, 30}, true},
		{"Reversed args", Chunk{40, 120}, Chunk{0, 50}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestChunkMergeable(t *testing.T) {
	assert.True(t, Chunk{0, 50}.Mergeable(Chunk{50, 120}))
	assert.True(t, Chunk{50, 120}.Mergeable(Chunk{0, 50}))
	assert.True(t, Chunk{0, 50}.Mergeable(Chunk{40, 120}))
	assert.False(t, Chunk{0, 50}.Mergeable(Chunk{51, 120}))
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
		want   []Chunk
	}{
		{
			name:   "Empty input",
			chunks: nil,
			want:   nil,
		},
		{
			name:   "Single",
			chunks: []Chunk{{0, 100}},
			want:   []Chunk{{0, 100}},
		},
		{
			name:   "Touching",
			chunks: []Chunk{{0, 50}, {50, 120}},
			want:   []Chunk{{0, 120}},
		},
		{
			name:   "Overlapping",
			chunks: []Chunk{{0, 60}, {50, 120}},
			want:   []Chunk{{0, 120}},
		},
		{
			name:   "Disjoint stay apart",
			chunks: []Chunk{{0, 50}, {60, 120}},
			want:   []Chunk{{0, 50}, {60, 120}},
		},
		{
			name:   "Unsorted input",
			chunks: []Chunk{{60, 120}, {0, 50}, {45, 70}},
			want:   []Chunk{{0, 120}},
		},
		{
			name:   "Contained",
			chunks: []Chunk{{0, 200}, {50, 60}, {190, 210}},
			want:   []Chunk{{0, 210}},
		},
		{
			name:   "Empties dropped",
			chunks: []Chunk{{10, 10}, {0, 50}, {70, 70}},
			want:   []Chunk{{0, 50}},
		},
		{
			name:   "Chain of touches",
			chunks: []Chunk{{0, 10}, {10, 20}, {20, 30}, {40, 50}},
			want:   []Chunk{{0, 30}, {40, 50}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.chunks)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)

			// Idempotent.
			assert.Equal(t, tt.want, Merge(got))
		})
	}
}

func TestMergeKeepsCoverage(t *testing.T) {
	chunks := []Chunk{{5, 30}, {0, 10}, {29, 40}, {100, 150}, {90, 101}}
	covered := func(cs []Chunk, o Offset) bool {
		for _, c := range cs {
			if o >= c.Start && o < c.End {
				return true
			}
		}
		return false
	}

	merged := Merge(append([]Chunk(nil), chunks...))
	for o := Offset(0); o < 160; o++ {
		assert.Equal(t, covered(chunks, o), covered(merged, o), "offset %d", o)
	}

	// Sorted and disjoint.
	for i := 1; i < len(merged); i++ {
		assert.Less(t, merged[i-1].End, merged[i].Start)
	}
}
