// Copyright 2025, Adeline Murphy

package internal

import (
	"iter"
)

// IterSeq2Concat concatenates multiple dual-return iterators into a single iterator sequence.
func IterSeq2Concat[T1 any, T2 any](seqs ...iter.Seq2[T1, T2]) iter.Seq2[T1, T2] {
	return func(yield func(T1, T2) bool) {
		for _, seq := range seqs {
			for val1, val2 := range seq {
				if !yield(val1, val2) {
					return
				}
			}
		}
	}
}

// IterSeq2First returns an iterator that yields only the first occurrence of
// each key, so earlier sequences shadow later ones.
func IterSeq2First[K comparable, V any](seq iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		seen := map[K]bool{}
		for key, val := range seq {
			if seen[key] {
				continue
			}
			seen[key] = true
			if !yield(key, val) {
				return
			}
		}
	}
}
