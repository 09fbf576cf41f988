package bindex_bench_test

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/bindex"
)

func BenchmarkQueryWindow(b *testing.B) {
	idx := buildIndex(b, 4, 100_000)

	spans := []struct {
		name string
		span int64
	}{
		{"1kb", 1 << 10},
		{"64kb", 1 << 16},
		{"1mb", 1 << 20},
		{"16mb", 1 << 24},
	}

	for _, s := range spans {
		b.Run(s.name, func(b *testing.B) {
			rng := rand.New(rand.NewSource(7))
			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				start := rng.Int63n(1 << 22)
				if _, err := idx.Query(0, start, start+s.span); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkQueryParallel(b *testing.B) {
	idx := buildIndex(b, 4, 100_000)

	var seed atomic.Int64
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(seed.Add(1)))
		for pb.Next() {
			start := rng.Int63n(1 << 22)
			if _, err := idx.Query(int(seed.Load())%4, start, start+1<<16); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkQueryMany(b *testing.B) {
	idx := buildIndex(b, 4, 100_000)

	rng := rand.New(rand.NewSource(3))
	regions := make([]bindex.Region, 64)
	for i := range regions {
		start := rng.Int63n(1 << 22)
		regions[i] = bindex.Region{RefID: i % 4, Start: start, End: start + 1<<16}
	}

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		if _, err := idx.QueryMany(ctx, regions); err != nil {
			b.Fatal(err)
		}
	}
}
