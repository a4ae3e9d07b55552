package knowr

import "maps"

// Score applies one round's scoring to a copy of scores and returns it.
// Every guesser whose guess equals secret gains a point; everybody else,
// including the target, keeps their score. Guessers without an entry get 0.
// guesses must already hold the final guess of the round.
func Score(scores map[string]int, guessers []string, guesses map[string]Choice, secret Choice) map[string]int {
	next := maps.Clone(scores)
	if next == nil {
		next = make(map[string]int, len(guessers))
	}

	for _, id := range guessers {
		g, ok := guesses[id]
		if ok && secret.Valid() && g == secret {
			next[id]++
			continue
		}

		if _, ok := next[id]; !ok {
			next[id] = 0
		}
	}

	return next
}
