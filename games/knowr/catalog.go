/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package knowr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCatalog  = errors.New("prompt catalog is empty")
	ErrInvalidPrompt = errors.New("invalid prompt")
)

// Prompt is a labelled binary choice. Media fields are passed through to
// presenters untouched.
type Prompt struct {
	Label   string `json:"label" mapstructure:"label"`
	OptionA string `json:"option_a" mapstructure:"option_a"`
	OptionB string `json:"option_b" mapstructure:"option_b"`
	MediaA  string `json:"media_a,omitempty" mapstructure:"media_a"`
	MediaB  string `json:"media_b,omitempty" mapstructure:"media_b"`
}

// Option returns the text of the given choice, or "" for ChoiceNone.
func (p Prompt) Option(c Choice) string {
	switch c {
	case ChoiceFirst:
		return p.OptionA
	case ChoiceSecond:
		return p.OptionB
	default:
		return ""
	}
}

// Catalog is a fixed, ordered, non-empty list of prompts.
type Catalog struct {
	prompts []Prompt
}

// NewCatalog copies prompts into a Catalog after checking that every prompt
// has a label and two option texts.
func NewCatalog(prompts []Prompt) (Catalog, error) {
	if len(prompts) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	out := make([]Prompt, len(prompts))
	for i, p := range prompts {
		p.Label = strings.TrimSpace(p.Label)
		p.OptionA = strings.TrimSpace(p.OptionA)
		p.OptionB = strings.TrimSpace(p.OptionB)

		if p.Label == "" || p.OptionA == "" || p.OptionB == "" {
			return Catalog{}, fmt.Errorf("%w: prompt %d needs a label and two options", ErrInvalidPrompt, i)
		}

		out[i] = p
	}

	return Catalog{prompts: out}, nil
}

// DefaultCatalog is the built-in prompt list.
func DefaultCatalog() Catalog {
	return Catalog{prompts: []Prompt{
		{Label: "Which would you choose?", OptionA: "Blonde", OptionB: "Brunette"},
		{Label: "Coffee or Tea", OptionA: "Coffee", OptionB: "Tea"},
		{Label: "What tempts you more?", OptionA: "Beach", OptionB: "Mountains"},
		{Label: "In the evening...", OptionA: "Movie", OptionB: "Game"},
	}}
}

func (c Catalog) Len() int {
	return len(c.prompts)
}

// At returns the prompt at i, wrapping around the end of the catalog.
func (c Catalog) At(i int) Prompt {
	n := len(c.prompts)
	if n == 0 {
		return Prompt{}
	}

	i %= n
	if i < 0 {
		i += n
	}

	return c.prompts[i]
}

// Next returns the index following i, wrapping to 0 after the last prompt.
func (c Catalog) Next(i int) int {
	if len(c.prompts) == 0 {
		return 0
	}

	return (i + 1) % len(c.prompts)
}
