// Package knowr implements the Knowr party game played on a single shared phone.
//
// One player is the target. Each round the target secretly picks one of two
// options for a prompt, then the phone is passed around and every other
// player guesses what the target picked. Each correct guess is worth a point.
// After the last round the standings are shown.
//
// Flow of a round:
// - SETUP: players are added, one of them is chosen as the target
// - PASS_TO_TARGET: the phone goes to the target
// - PICK: the target picks FIRST or SECOND
// - PASS_TO_GUESSER / GUESS: repeated once per guesser, in join order
// - RESULT: guesses are scored and shown
// - then either the next round or GAME_OVER
//
// Only players, the target and scores outlive a process; see Snapshot.
package knowr
