package knowr

import (
	"fmt"
	"slices"
)

const (
	unresolvedLabel = "?"
	noGuess         = "—"
)

// PlayerView is one row of the player list.
type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsTarget bool   `json:"is_target"`
}

// ResultRow is one guesser's outcome for the round.
type ResultRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Guess   string `json:"guess"`
	Correct bool   `json:"correct"`
}

// Standing is one row of the final ranking.
type Standing struct {
	Rank  int    `json:"rank"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// View is everything a presenter needs to draw the current phase.
// CorrectLabel and Results are only filled in once guessing is over.
type View struct {
	Phase        Phase        `json:"phase"`
	Round        int          `json:"round"`
	MaxRounds    int          `json:"max_rounds"`
	Players      []PlayerView `json:"players"`
	TargetName   string       `json:"target_name,omitempty"`
	CanStart     bool         `json:"can_start"`
	Prompt       Prompt       `json:"prompt"`
	GuesserName  string       `json:"guesser_name,omitempty"`
	Progress     string       `json:"progress,omitempty"`
	CorrectLabel string       `json:"correct_label,omitempty"`
	Results      []ResultRow  `json:"results,omitempty"`
	Standings    []Standing   `json:"standings"`
}

// View derives the presenter data for the current state. It does not
// modify the session.
func (s *Session) View() View {
	v := View{
		Phase:     s.phase,
		Round:     s.round,
		MaxRounds: s.maxRounds,
		Players:   make([]PlayerView, 0, len(s.players)),
		CanStart:  s.CanStart(),
		Prompt:    s.CurrentPrompt(),
		Standings: s.Standings(),
	}

	for _, p := range s.players {
		v.Players = append(v.Players, PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			Score:    s.scores[p.ID],
			IsTarget: p.ID == s.targetID,
		})
	}

	if t, ok := s.Target(); ok {
		v.TargetName = t.Name
	}

	switch s.phase {
	case PhasePassToGuesser, PhaseGuess:
		if g, ok := s.CurrentGuesser(); ok {
			v.GuesserName = g.Name
		}
		v.Progress = s.ProgressText()
	case PhaseResult, PhaseGameOver:
		v.CorrectLabel = s.CorrectLabel()
		v.Results = s.ResultRows()
	}

	return v
}

// ProgressText reports the current guesser's position among all guessers.
func (s *Session) ProgressText() string {
	return fmt.Sprintf("%d/%d guessers done", s.cursor+1, len(s.GuesserOrder()))
}

// CorrectLabel is the letter and text of the secret choice, or "?" when
// nothing has been picked.
func (s *Session) CorrectLabel() string {
	if !s.secret.Valid() {
		return unresolvedLabel
	}

	return s.secret.Letter() + ": " + s.CurrentPrompt().Option(s.secret)
}

// ResultRows lists every guesser with their guess and whether it matched.
func (s *Session) ResultRows() []ResultRow {
	order := s.GuesserOrder()
	rows := make([]ResultRow, 0, len(order))

	for _, id := range order {
		p, _ := s.player(id)
		g, ok := s.guesses[id]

		row := ResultRow{
			ID:      id,
			Name:    p.Name,
			Guess:   noGuess,
			Correct: ok && s.secret.Valid() && g == s.secret,
		}
		if ok {
			row.Guess = g.Letter()
		}

		rows = append(rows, row)
	}

	return rows
}

// Standings ranks every player by score, highest first. Equal scores keep
// join order and share a rank.
func (s *Session) Standings() []Standing {
	rows := make([]Standing, 0, len(s.players))
	for _, p := range s.players {
		rows = append(rows, Standing{ID: p.ID, Name: p.Name, Score: s.scores[p.ID]})
	}

	slices.SortStableFunc(rows, func(a, b Standing) int {
		return b.Score - a.Score
	})

	for i := range rows {
		if i > 0 && rows[i].Score == rows[i-1].Score {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}

	return rows
}
