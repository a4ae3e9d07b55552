package knowr

import (
	"maps"
	"slices"
	"strconv"
	"testing"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return strconv.Itoa(n)
	}
}

func newTestSession(t *testing.T, names ...string) *Session {
	t.Helper()

	s := NewSession(DefaultCatalog(), WithIDFunc(seqIDs()))
	for _, name := range names {
		if !s.AddPlayer(name) {
			t.Fatalf("AddPlayer(%q) rejected", name)
		}
	}

	return s
}

// playRound drives a full round: the target picks secret and the guessers
// answer in order.
func playRound(t *testing.T, s *Session, secret Choice, guesses ...Choice) {
	t.Helper()

	if !s.AcknowledgeTargetHandoff() {
		t.Fatalf("AcknowledgeTargetHandoff in %s", s.Phase())
	}
	if !s.Pick(secret) {
		t.Fatalf("Pick in %s", s.Phase())
	}
	for i, g := range guesses {
		if !s.AcknowledgeGuesserHandoff() {
			t.Fatalf("AcknowledgeGuesserHandoff %d in %s", i, s.Phase())
		}
		if !s.SubmitGuess(g) {
			t.Fatalf("SubmitGuess %d in %s", i, s.Phase())
		}
	}
}

func assertScoresMatchPlayers(t *testing.T, s *Session) {
	t.Helper()

	scores := s.Scores()
	if len(scores) != len(s.Players()) {
		t.Fatalf("len(scores) %d, want %d", len(scores), len(s.Players()))
	}
	for _, p := range s.Players() {
		if _, ok := scores[p.ID]; !ok {
			t.Fatalf("no score for %q", p.Name)
		}
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession(Catalog{})
	if s.Phase() != PhaseSetup {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseSetup)
	}
	if s.Round() != 1 {
		t.Errorf("Round %d, want 1", s.Round())
	}
	if s.MaxRounds() != MaxRounds {
		t.Errorf("MaxRounds %d, want %d", s.MaxRounds(), MaxRounds)
	}
	if s.Catalog().Len() != DefaultCatalog().Len() {
		t.Error("zero catalog should fall back to the default one")
	}
	if s.CanStart() {
		t.Error("empty session should not be startable")
	}
}

func TestSession_AddPlayer(t *testing.T) {
	s := NewSession(DefaultCatalog())

	if !s.AddPlayer("  Alice  ") {
		t.Fatal("AddPlayer rejected a valid name")
	}
	alice := s.Players()[0]
	if alice.Name != "Alice" {
		t.Errorf("Name %q, want trimmed Alice", alice.Name)
	}
	if alice.ID == "" {
		t.Error("ID is empty")
	}
	if s.TargetID() != alice.ID {
		t.Errorf("first player should become target, got %q", s.TargetID())
	}

	if s.AddPlayer("   ") {
		t.Error("blank name accepted")
	}
	if s.AddPlayer("aLiCe") {
		t.Error("name differing only in case accepted")
	}

	if !s.AddPlayer("Bob") {
		t.Fatal("AddPlayer(Bob) rejected")
	}
	bob := s.Players()[1]
	if bob.ID == alice.ID {
		t.Error("second player should have a different ID")
	}
	if s.TargetID() != alice.ID {
		t.Errorf("target should stay first player, got %q", s.TargetID())
	}

	assertScoresMatchPlayers(t, s)
}

func TestSession_AddPlayerRejectsDuplicateID(t *testing.T) {
	s := NewSession(DefaultCatalog(), WithIDFunc(func() string { return "same" }))

	s.AddPlayer("Alice")
	if s.AddPlayer("Bob") {
		t.Error("player with a duplicate id accepted")
	}
	if len(s.Players()) != 1 {
		t.Errorf("len(Players) %d, want 1", len(s.Players()))
	}
}

func TestSession_RemovePlayer(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol")

	if s.RemovePlayer("missing") {
		t.Error("removing an unknown id should be a no-op")
	}

	if !s.RemovePlayer("2") {
		t.Fatal("RemovePlayer(Bob) rejected")
	}
	if len(s.Players()) != 2 {
		t.Errorf("len(Players) %d, want 2", len(s.Players()))
	}
	if s.TargetID() != "1" {
		t.Errorf("target changed to %q", s.TargetID())
	}
	assertScoresMatchPlayers(t, s)

	if !s.RemovePlayer("1") {
		t.Fatal("RemovePlayer(Alice) rejected")
	}
	if s.TargetID() != "" {
		t.Errorf("removing the target should clear it, got %q", s.TargetID())
	}
	if s.CanStart() {
		t.Error("session without a target should not be startable")
	}
	assertScoresMatchPlayers(t, s)
}

func TestSession_AddToEmptiedSessionTargetsNewPlayer(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")

	s.RemovePlayer("1")
	if s.AddPlayer("Carol"); s.TargetID() != "" {
		t.Errorf("adding to a non-empty session set target %q", s.TargetID())
	}

	s.RemovePlayer("2")
	s.RemovePlayer("3")
	if !s.AddPlayer("Dave") {
		t.Fatal("AddPlayer(Dave) rejected")
	}
	if s.TargetID() != "4" {
		t.Errorf("TargetID %q, want 4", s.TargetID())
	}
}

func TestSession_ScoresFollowPlayers(t *testing.T) {
	s := newTestSession(t)

	ops := []func(){
		func() { s.AddPlayer("a") },
		func() { s.AddPlayer("b") },
		func() { s.AddPlayer("B") },
		func() { s.RemovePlayer("1") },
		func() { s.AddPlayer("c") },
		func() { s.RemovePlayer("3") },
		func() { s.RemovePlayer("3") },
		func() { s.AddPlayer("a") },
	}

	for i, op := range ops {
		op()
		assertScoresMatchPlayers(t, s)
		if t.Failed() {
			t.Fatalf("after op %d", i)
		}
	}
}

func TestSession_SelectTarget(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")

	if s.SelectTarget("missing") {
		t.Error("selecting an unknown player should be a no-op")
	}
	if !s.SelectTarget("2") {
		t.Fatal("SelectTarget(Bob) rejected")
	}
	if s.TargetID() != "2" {
		t.Errorf("TargetID %q, want 2", s.TargetID())
	}

	s.StartGame()
	if s.SelectTarget("1") {
		t.Error("target should not change once the game started")
	}
}

func TestSession_StartGame(t *testing.T) {
	s := newTestSession(t, "Alice")
	if s.StartGame() {
		t.Fatal("started with a single player")
	}

	s.AddPlayer("Bob")
	s.RemovePlayer("1")
	s.AddPlayer("Carol")
	if s.TargetID() != "" {
		t.Fatalf("target should still be unset, got %q", s.TargetID())
	}
	if s.StartGame() {
		t.Fatal("started without a target")
	}
	if s.Phase() != PhaseSetup {
		t.Fatalf("Phase %q, want %q", s.Phase(), PhaseSetup)
	}

	s.SelectTarget("2")
	if !s.StartGame() {
		t.Fatal("StartGame rejected a valid setup")
	}
	if s.Phase() != PhasePassToTarget {
		t.Errorf("Phase %q, want %q", s.Phase(), PhasePassToTarget)
	}
	if s.Round() != 1 || s.PromptIndex() != 0 {
		t.Errorf("Round %d PromptIndex %d, want 1 and 0", s.Round(), s.PromptIndex())
	}
	if s.StartGame() {
		t.Error("StartGame should not restart a running game")
	}
}

func TestSession_PhaseGuards(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")

	if s.AcknowledgeTargetHandoff() || s.Pick(ChoiceFirst) || s.AcknowledgeGuesserHandoff() ||
		s.SubmitGuess(ChoiceFirst) || s.AdvanceRound() {
		t.Fatal("round intents should be no-ops in SETUP")
	}

	s.StartGame()
	s.AcknowledgeTargetHandoff()
	if s.Pick(Choice("C")) {
		t.Error("Pick accepted a third option")
	}
	if s.Pick(ChoiceNone) {
		t.Error("Pick accepted no option")
	}
	if s.Phase() != PhasePick {
		t.Errorf("Phase %q, want %q", s.Phase(), PhasePick)
	}

	s.Pick(ChoiceSecond)
	s.AcknowledgeGuesserHandoff()
	if s.SubmitGuess(Choice("")) {
		t.Error("SubmitGuess accepted no option")
	}
}

func TestSession_Scenario(t *testing.T) {
	catalog, err := NewCatalog([]Prompt{
		{Label: "Coffee or Tea", OptionA: "Coffee", OptionB: "Tea"},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	s := NewSession(catalog, WithIDFunc(seqIDs()))
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		s.AddPlayer(name)
	}
	s.StartGame()

	if s.Round() != 1 || s.CurrentPrompt().Label != "Coffee or Tea" {
		t.Fatalf("round %d prompt %q", s.Round(), s.CurrentPrompt().Label)
	}

	s.AcknowledgeTargetHandoff()
	s.Pick(ChoiceFirst)
	if s.Phase() != PhasePassToGuesser {
		t.Fatalf("Phase %q, want %q", s.Phase(), PhasePassToGuesser)
	}

	s.AcknowledgeGuesserHandoff()
	if g, _ := s.CurrentGuesser(); g.Name != "Bob" {
		t.Fatalf("current guesser %q, want Bob", g.Name)
	}
	s.SubmitGuess(ChoiceFirst)
	if s.Phase() != PhasePassToGuesser {
		t.Fatalf("Phase %q, want %q", s.Phase(), PhasePassToGuesser)
	}
	if s.Scores()["2"] != 0 {
		t.Error("scores must not change before the last guess")
	}

	s.AcknowledgeGuesserHandoff()
	if g, _ := s.CurrentGuesser(); g.Name != "Carol" {
		t.Fatalf("current guesser %q, want Carol", g.Name)
	}
	s.SubmitGuess(ChoiceSecond)

	if s.Phase() != PhaseResult {
		t.Fatalf("Phase %q, want %q", s.Phase(), PhaseResult)
	}

	want := map[string]int{"1": 0, "2": 1, "3": 0}
	if got := s.Scores(); !maps.Equal(got, want) {
		t.Errorf("scores %v, want %v", got, want)
	}
}

func TestSession_LastGuessCountsTowardScore(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")
	s.StartGame()

	playRound(t, s, ChoiceSecond, ChoiceSecond)

	if s.Phase() != PhaseResult {
		t.Fatalf("Phase %q, want %q", s.Phase(), PhaseResult)
	}
	if got := s.Scores()["2"]; got != 1 {
		t.Errorf("Bob's score %d, want 1", got)
	}
}

func TestSession_ScoringOnlyRewardsCorrectGuessers(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol", "Dave")
	s.StartGame()

	before := s.Scores()
	playRound(t, s, ChoiceFirst, ChoiceFirst, ChoiceFirst, ChoiceSecond)
	after := s.Scores()

	for id, delta := range map[string]int{"1": 0, "2": 1, "3": 1, "4": 0} {
		if after[id]-before[id] != delta {
			t.Errorf("player %s gained %d, want %d", id, after[id]-before[id], delta)
		}
	}
}

func TestSession_AdvanceRoundAndGameOver(t *testing.T) {
	s := NewSession(DefaultCatalog(), WithIDFunc(seqIDs()), WithMaxRounds(6))
	s.AddPlayer("Alice")
	s.AddPlayer("Bob")
	s.StartGame()

	n := s.Catalog().Len()
	for round := 1; round <= 6; round++ {
		if s.Round() != round {
			t.Fatalf("Round %d, want %d", s.Round(), round)
		}
		if s.PromptIndex() != (round-1)%n {
			t.Fatalf("PromptIndex %d, want %d", s.PromptIndex(), (round-1)%n)
		}

		playRound(t, s, ChoiceFirst, ChoiceFirst)
		if !s.AdvanceRound() {
			t.Fatalf("AdvanceRound rejected in round %d", round)
		}
	}

	if s.Phase() != PhaseGameOver {
		t.Fatalf("Phase %q, want %q", s.Phase(), PhaseGameOver)
	}
	if s.Round() != 6 {
		t.Errorf("Round %d, want 6", s.Round())
	}
	if got := s.Scores()["2"]; got != 6 {
		t.Errorf("Bob's score %d, want 6", got)
	}
	if s.AdvanceRound() {
		t.Error("AdvanceRound should be a no-op in GAME_OVER")
	}
}

func TestSession_AdvanceRoundClearsRound(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol")
	s.StartGame()
	playRound(t, s, ChoiceFirst, ChoiceFirst, ChoiceSecond)
	s.AdvanceRound()

	if s.Phase() != PhasePassToTarget {
		t.Errorf("Phase %q, want %q", s.Phase(), PhasePassToTarget)
	}
	if s.SecretChoice() != ChoiceNone {
		t.Errorf("SecretChoice %q, want none", s.SecretChoice())
	}
	if len(s.Guesses()) != 0 {
		t.Errorf("Guesses %v, want empty", s.Guesses())
	}
	if s.GuesserCursor() != 0 {
		t.Errorf("GuesserCursor %d, want 0", s.GuesserCursor())
	}
}

func TestSession_NewGame(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")
	s.SelectTarget("2")
	s.StartGame()
	playRound(t, s, ChoiceFirst, ChoiceFirst)

	if !s.NewGame() {
		t.Fatal("NewGame rejected")
	}
	if s.Phase() != PhaseSetup {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseSetup)
	}
	if s.Round() != 1 || s.PromptIndex() != 0 {
		t.Errorf("Round %d PromptIndex %d, want 1 and 0", s.Round(), s.PromptIndex())
	}
	for id, score := range s.Scores() {
		if score != 0 {
			t.Errorf("score of %s = %d, want 0", id, score)
		}
	}
	if len(s.Players()) != 2 {
		t.Errorf("len(Players) %d, want 2", len(s.Players()))
	}
	if s.TargetID() != "2" {
		t.Errorf("TargetID %q, want 2", s.TargetID())
	}
}

func TestSession_ResetScores(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")
	s.StartGame()
	playRound(t, s, ChoiceFirst, ChoiceFirst)

	if !s.ResetScores() {
		t.Fatal("ResetScores reported no change")
	}
	if s.Phase() != PhaseResult {
		t.Errorf("ResetScores changed phase to %q", s.Phase())
	}
	if got := s.Scores()["2"]; got != 0 {
		t.Errorf("Bob's score %d, want 0", got)
	}
	if s.ResetScores() {
		t.Error("second ResetScores should report no change")
	}
}

func TestSession_ReturnToSetup(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")
	if s.ReturnToSetup() {
		t.Error("ReturnToSetup from SETUP should be a no-op")
	}

	s.StartGame()
	playRound(t, s, ChoiceFirst, ChoiceFirst)
	if !s.ReturnToSetup() {
		t.Fatal("ReturnToSetup rejected")
	}
	if s.Phase() != PhaseSetup {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseSetup)
	}
	if got := s.Scores()["2"]; got != 1 {
		t.Errorf("Bob's score %d, want 1", got)
	}
	if s.SecretChoice() != ChoiceNone {
		t.Errorf("SecretChoice %q, want none", s.SecretChoice())
	}
}

func TestSession_PickWithoutGuessers(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")
	s.StartGame()
	s.AcknowledgeTargetHandoff()
	s.RemovePlayer("2")

	if !s.Pick(ChoiceFirst) {
		t.Fatal("Pick rejected")
	}
	if s.Phase() != PhaseResult {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseResult)
	}
	if rows := s.ResultRows(); len(rows) != 0 {
		t.Errorf("ResultRows %v, want none", rows)
	}
	if got := s.Scores()["1"]; got != 0 {
		t.Errorf("target score %d, want 0", got)
	}
}

func TestSession_RemoveGuesserMidRound(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol", "Dave")
	s.StartGame()
	s.AcknowledgeTargetHandoff()
	s.Pick(ChoiceFirst)
	s.AcknowledgeGuesserHandoff()
	s.SubmitGuess(ChoiceFirst)

	// Bob has guessed; removing him must keep the turn with Carol.
	s.RemovePlayer("2")
	if g, _ := s.CurrentGuesser(); g.Name != "Carol" {
		t.Fatalf("current guesser %q, want Carol", g.Name)
	}

	// Removing the current guesser passes the turn to the next one.
	s.RemovePlayer("3")
	if g, _ := s.CurrentGuesser(); g.Name != "Dave" {
		t.Fatalf("current guesser %q, want Dave", g.Name)
	}

	// Removing the last one left finishes the round.
	s.RemovePlayer("4")
	if s.Phase() != PhaseResult {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseResult)
	}
	assertScoresMatchPlayers(t, s)
}

func TestSession_RemoveTargetMidRound(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol")
	s.StartGame()
	s.AcknowledgeTargetHandoff()
	s.Pick(ChoiceSecond)

	s.RemovePlayer("1")

	if s.Phase() != PhaseSetup {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseSetup)
	}
	if s.TargetID() != "" {
		t.Errorf("TargetID %q, want empty", s.TargetID())
	}
	if len(s.Guesses()) != 0 {
		t.Errorf("Guesses %v, want empty", s.Guesses())
	}
}

func TestSession_SnapshotSink(t *testing.T) {
	var saved []Snapshot
	s := NewSession(DefaultCatalog(),
		WithIDFunc(seqIDs()),
		WithSnapshotSink(func(snap Snapshot) { saved = append(saved, snap) }),
	)

	s.AddPlayer("Alice")
	s.AddPlayer("Bob")
	s.AddPlayer("bob")
	if len(saved) != 2 {
		t.Fatalf("saves after adds = %d, want 2", len(saved))
	}

	s.StartGame()
	s.AcknowledgeTargetHandoff()
	s.Pick(ChoiceFirst)
	s.AcknowledgeGuesserHandoff()
	if len(saved) != 2 {
		t.Fatalf("round-scoped changes must not save, got %d saves", len(saved))
	}

	s.SubmitGuess(ChoiceFirst)
	if len(saved) != 3 {
		t.Fatalf("saves after scoring = %d, want 3", len(saved))
	}

	last := saved[len(saved)-1]
	if last.Scores["2"] != 1 || last.TargetID != "1" {
		t.Errorf("last snapshot %+v", last)
	}

	// Snapshots are copies.
	s.NewGame()
	if last.Scores["2"] != 1 {
		t.Error("snapshot shares its score map with the session")
	}
}

func TestSession_Restore(t *testing.T) {
	s := newTestSession(t, "Zed", "Yan")
	s.StartGame()
	s.AcknowledgeTargetHandoff()

	s.Restore(Snapshot{
		Players: []Player{
			{ID: "1", Name: "A"},
			{ID: "2", Name: "B"},
			{ID: "1", Name: "Again"},
			{ID: "3", Name: "b"},
			{ID: "4", Name: " "},
		},
		TargetID: "1",
		Scores:   map[string]int{"1": 3, "9": 7, "2": -2},
	})

	if s.Phase() != PhaseSetup {
		t.Errorf("Phase %q, want %q", s.Phase(), PhaseSetup)
	}
	if s.Round() != 1 || s.PromptIndex() != 0 || s.SecretChoice() != ChoiceNone {
		t.Error("round-scoped fields not reset")
	}

	names := make([]string, 0)
	for _, p := range s.Players() {
		names = append(names, p.Name)
	}
	if !slices.Equal(names, []string{"A", "B"}) {
		t.Errorf("players %v, want [A B]", names)
	}

	want := map[string]int{"1": 3, "2": 0}
	if got := s.Scores(); !maps.Equal(got, want) {
		t.Errorf("scores %v, want %v", got, want)
	}
	if s.TargetID() != "1" {
		t.Errorf("TargetID %q, want 1", s.TargetID())
	}

	s.Restore(Snapshot{
		Players:  []Player{{ID: "\t", Name: "Blank"}, {ID: " 7 ", Name: "Padded"}},
		TargetID: " 7 ",
		Scores:   map[string]int{" 7 ": 2},
	})
	if got := s.Players(); len(got) != 1 || got[0].ID != " 7 " {
		t.Errorf("players %+v, want only the padded id kept as stored", got)
	}
	if s.TargetID() != " 7 " || s.Scores()[" 7 "] != 2 {
		t.Errorf("padded id lost its target or score: %q %v", s.TargetID(), s.Scores())
	}

	s.Restore(Snapshot{Players: []Player{{ID: "1", Name: "A"}}, TargetID: "gone"})
	if s.TargetID() != "" {
		t.Errorf("dangling target kept: %q", s.TargetID())
	}
}

func TestSession_AddAfterRestoreKeepsTarget(t *testing.T) {
	s := NewSession(DefaultCatalog())
	s.Restore(Snapshot{
		Players:  []Player{{ID: "1", Name: "A"}},
		TargetID: "1",
		Scores:   map[string]int{"1": 3},
	})

	s.AddPlayer("B")
	if s.TargetID() != "1" {
		t.Errorf("TargetID %q, want 1", s.TargetID())
	}
	if !s.CanStart() {
		t.Error("restored session with two players and a target should be startable")
	}
}
