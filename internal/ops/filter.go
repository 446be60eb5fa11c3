package ops

import (
	"strings"

	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/tag"
)

// FilterInput contains parameters for the Filter operation.
type FilterInput struct {
	Text string // required
}

// FilterOutput contains the result of the Filter operation. Scalar fields
// hold the raw tag values exactly as written; nil means the tag was absent.
type FilterOutput struct {
	Stripped   string               `json:"stripped"`
	Time       *string              `json:"time,omitempty"`
	Location   *string              `json:"location,omitempty"`
	Weather    *string              `json:"weather,omitempty"`
	Heart      *string              `json:"heart,omitempty"`
	Characters []tag.CharacterEntry `json:"characters,omitempty"`
}

// Filter strips tracker tags out of a piece of text and reports what they
// carried. Stateless: no session is touched and nothing is stored, which
// makes it safe to run against text from anywhere.
func Filter(input FilterInput) (*FilterOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}

	tags := tag.Extract(input.Text)
	return &FilterOutput{
		Stripped:   tag.Strip(input.Text),
		Time:       tags.Time,
		Location:   tags.Location,
		Weather:    tags.Weather,
		Heart:      tags.Heart,
		Characters: tags.Characters,
	}, nil
}
