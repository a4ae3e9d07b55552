/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package knowr

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type SessionOption func(*Session)

// WithMaxRounds sets the number of rounds in a game. Values below 1 are ignored.
func WithMaxRounds(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithIDFunc replaces the player id generator.
func WithIDFunc(f func() string) SessionOption {
	return func(s *Session) {
		if f != nil {
			s.newID = f
		}
	}
}

// WithSnapshotSink registers f to receive a fresh Snapshot every time the
// players, the target or the scores change. f is called synchronously, in
// the order the changes happen, and must not block.
func WithSnapshotSink(f func(Snapshot)) SessionOption {
	return func(s *Session) {
		if f != nil {
			s.sink = f
		}
	}
}

// Session holds all mutable game state. It is not safe for concurrent use;
// callers serialise intents (see Hub in the main package).
type Session struct {
	catalog   Catalog
	maxRounds int
	newID     func() string
	sink      func(Snapshot)

	players  []Player
	targetID string
	scores   map[string]int

	phase       Phase
	promptIndex int
	round       int
	secret      Choice
	guesses     map[string]Choice
	cursor      int
}

// NewSession returns a session in SETUP with no players. A zero Catalog is
// replaced by DefaultCatalog.
func NewSession(catalog Catalog, opts ...SessionOption) *Session {
	if catalog.Len() == 0 {
		catalog = DefaultCatalog()
	}

	s := &Session{
		catalog:   catalog,
		maxRounds: MaxRounds,
		newID:     uuid.NewString,
		sink:      func(Snapshot) {},
		scores:    make(map[string]int),
		guesses:   make(map[string]Choice),
		phase:     PhaseSetup,
		round:     1,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) Phase() Phase { return s.phase }
func (s *Session) Round() int { return s.round }
func (s *Session) MaxRounds() int { return s.maxRounds }
func (s *Session) PromptIndex() int { return s.promptIndex }
func (s *Session) TargetID() string { return s.targetID }
func (s *Session) SecretChoice() Choice { return s.secret }
func (s *Session) GuesserCursor() int { return s.cursor }
func (s *Session) Catalog() Catalog { return s.catalog }

func (s *Session) Players() []Player {
	return slices.Clone(s.players)
}

func (s *Session) Scores() map[string]int {
	return maps.Clone(s.scores)
}

func (s *Session) Guesses() map[string]Choice {
	return maps.Clone(s.guesses)
}

func (s *Session) CurrentPrompt() Prompt {
	return s.catalog.At(s.promptIndex)
}

// CanStart reports whether StartGame would do anything from SETUP.
func (s *Session) CanStart() bool {
	return len(s.players) >= 2 && s.targetID != ""
}

// GuesserOrder returns the ids of every player except the target, in join
// order. It is empty while no target is selected.
func (s *Session) GuesserOrder() []string {
	if s.targetID == "" {
		return nil
	}

	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		if p.ID != s.targetID {
			ids = append(ids, p.ID)
		}
	}

	return ids
}

// CurrentGuesser returns the player whose turn it is to guess.
func (s *Session) CurrentGuesser() (Player, bool) {
	order := s.GuesserOrder()
	if s.cursor < 0 || s.cursor >= len(order) {
		return Player{}, false
	}

	return s.player(order[s.cursor])
}

// Target returns the target player, if one is selected.
func (s *Session) Target() (Player, bool) {
	return s.player(s.targetID)
}

func (s *Session) player(id string) (Player, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.players[i], true
	}

	return Player{}, false
}

func (s *Session) indexOf(id string) int {
	if id == "" {
		return -1
	}

	return slices.IndexFunc(s.players, func(p Player) bool {
		return p.ID == id
	})
}

func (s *Session) nameTaken(name string) bool {
	return slices.ContainsFunc(s.players, func(p Player) bool {
		return strings.EqualFold(p.Name, name)
	})
}

// AddPlayer appends a player named name (trimmed). Empty names and names
// already in use, ignoring case, are rejected. A player added to an empty
// session becomes the target, so once everyone has been removed the next
// player added is auto-targeted again, not only the first ever added.
func (s *Session) AddPlayer(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || s.nameTaken(name) {
		return false
	}

	p := Player{ID: s.newID(), Name: name}
	if p.ID == "" || s.indexOf(p.ID) >= 0 {
		return false
	}

	first := len(s.players) == 0

	s.players = append(s.players, p)
	if _, ok := s.scores[p.ID]; !ok {
		s.scores[p.ID] = 0
	}
	if first {
		s.targetID = p.ID
	}

	s.persist()

	return true
}

// RemovePlayer deletes the player with the given id along with its score and
// guess. Removing the target clears the target and, if a round is underway,
// aborts it back to SETUP. Removing a guesser mid-round keeps the turn with
// the same remaining guesser, and finishes the round if nobody is left to
// guess.
func (s *Session) RemovePlayer(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}

	pos := slices.Index(s.GuesserOrder(), id)

	s.players = slices.Delete(s.players, i, i+1)
	delete(s.guesses, id)
	delete(s.scores, id)

	switch {
	case id == s.targetID:
		s.targetID = ""
		if s.phase.InRound() {
			s.clearRound()
			s.phase = PhaseSetup
		}
	case pos >= 0 && (s.phase == PhasePassToGuesser || s.phase == PhaseGuess):
		if pos < s.cursor {
			s.cursor--
		}
		if s.cursor >= len(s.GuesserOrder()) {
			s.finishRound(s.guesses)
		}
	}

	s.persist()

	return true
}

// SelectTarget makes the player with the given id the target. It only
// applies in SETUP and only to current players.
func (s *Session) SelectTarget(id string) bool {
	if s.phase != PhaseSetup || s.indexOf(id) < 0 || id == s.targetID {
		return false
	}

	s.targetID = id
	s.persist()

	return true
}

// StartGame begins round 1 on the first prompt.
func (s *Session) StartGame() bool {
	if s.phase != PhaseSetup || !s.CanStart() {
		return false
	}

	s.round = 1
	s.promptIndex = 0
	s.clearRound()
	s.phase = PhasePassToTarget

	return true
}

func (s *Session) AcknowledgeTargetHandoff() bool {
	if s.phase != PhasePassToTarget {
		return false
	}

	s.phase = PhasePick

	return true
}

// Pick records the target's secret choice. With nobody to guess, the round
// is scored straight away and the session moves to RESULT.
func (s *Session) Pick(c Choice) bool {
	if s.phase != PhasePick || !c.Valid() {
		return false
	}

	s.secret = c
	s.guesses = make(map[string]Choice)
	s.cursor = 0

	if len(s.GuesserOrder()) == 0 {
		s.finishRound(s.guesses)

		return true
	}

	s.phase = PhasePassToGuesser

	return true
}

func (s *Session) AcknowledgeGuesserHandoff() bool {
	if s.phase != PhasePassToGuesser {
		return false
	}

	s.phase = PhaseGuess

	return true
}

// SubmitGuess records the current guesser's choice. The last guess of a
// round scores the round, with the scoring reading the guess set that
// already contains this submission.
func (s *Session) SubmitGuess(c Choice) bool {
	if s.phase != PhaseGuess || !c.Valid() {
		return false
	}

	g, ok := s.CurrentGuesser()
	if !ok {
		return false
	}

	next := maps.Clone(s.guesses)
	if next == nil {
		next = make(map[string]Choice)
	}
	next[g.ID] = c
	s.guesses = next

	if s.cursor+1 < len(s.GuesserOrder()) {
		s.cursor++
		s.phase = PhasePassToGuesser

		return true
	}

	s.finishRound(next)

	return true
}

func (s *Session) finishRound(guesses map[string]Choice) {
	s.scores = Score(s.scores, s.GuesserOrder(), guesses, s.secret)
	s.phase = PhaseResult
	s.persist()
}

// AdvanceRound moves from RESULT to the next round, or to GAME_OVER after
// the last one.
func (s *Session) AdvanceRound() bool {
	if s.phase != PhaseResult {
		return false
	}

	if s.round >= s.maxRounds {
		s.phase = PhaseGameOver

		return true
	}

	s.round++
	s.promptIndex = s.catalog.Next(s.promptIndex)
	s.clearRound()
	s.phase = PhasePassToTarget

	return true
}

// ReturnToSetup abandons whatever is in progress without touching players
// or scores.
func (s *Session) ReturnToSetup() bool {
	if s.phase == PhaseSetup {
		return false
	}

	s.clearRound()
	s.phase = PhaseSetup

	return true
}

// ResetScores sets every score to 0.
func (s *Session) ResetScores() bool {
	changed := false
	for _, p := range s.players {
		if s.scores[p.ID] != 0 {
			changed = true
		}
		s.scores[p.ID] = 0
	}

	if changed {
		s.persist()
	}

	return changed
}

// NewGame zeroes the scores and returns to SETUP, keeping players and target.
func (s *Session) NewGame() bool {
	for _, p := range s.players {
		s.scores[p.ID] = 0
	}

	s.round = 1
	s.promptIndex = 0
	s.clearRound()
	s.phase = PhaseSetup

	s.persist()

	return true
}

func (s *Session) clearRound() {
	s.secret = ChoiceNone
	s.guesses = make(map[string]Choice)
	s.cursor = 0
}

// Snapshot returns a copy of the long-lived fields.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Players:  slices.Clone(s.players),
		TargetID: s.targetID,
		Scores:   maps.Clone(s.scores),
	}
}

// Restore replaces players, target and scores with those in snap and resets
// everything else, so a session never resumes mid-round. Ids are opaque and
// kept exactly as stored. Players with a blank name or id are dropped, as are
// repeated ids or names. Scores are kept only for remaining players and
// default to 0. A target that is not among the players is cleared.
func (s *Session) Restore(snap Snapshot) {
	players := make([]Player, 0, len(snap.Players))
	scores := make(map[string]int, len(snap.Players))

	for _, p := range snap.Players {
		p.Name = strings.TrimSpace(p.Name)
		if strings.TrimSpace(p.ID) == "" || p.Name == "" {
			continue
		}

		if slices.ContainsFunc(players, func(q Player) bool {
			return q.ID == p.ID || strings.EqualFold(q.Name, p.Name)
		}) {
			continue
		}

		players = append(players, p)
		scores[p.ID] = max(snap.Scores[p.ID], 0)
	}

	s.players = players
	s.scores = scores
	s.targetID = ""
	if s.indexOf(snap.TargetID) >= 0 {
		s.targetID = snap.TargetID
	}

	s.round = 1
	s.promptIndex = 0
	s.clearRound()
	s.phase = PhaseSetup
}

func (s *Session) persist() {
	s.sink(s.Snapshot())
}
