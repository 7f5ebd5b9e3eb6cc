package engine

import "math/rand/v2"

// popWord removes and returns the word at the tail of the pool.
func (g *ActiveGame) popWord() string {
	n := len(g.WordsRemaining)
	w := g.WordsRemaining[n-1]
	g.WordsRemaining = g.WordsRemaining[:n-1]
	return w
}

func insertAt(words []string, i int, w string) []string {
	words = append(words, "")
	copy(words[i+1:], words[i:])
	words[i] = w
	return words
}

// shuffled returns a fresh Fisher-Yates permutation of words.
func (r *Room) shuffled(words []string) []string {
	out := append([]string{}, words...)
	for i := len(out) - 1; i > 0; i-- {
		j := r.intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (r *Room) intN(n int) int {
	if r.rng != nil {
		return r.rng.IntN(n)
	}
	return rand.IntN(n)
}

func (r *Room) defaultTurnSeconds() int {
	if r.turnSeconds > 0 {
		return r.turnSeconds
	}
	return DefaultTurnSeconds
}
