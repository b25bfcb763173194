package extract

import (
	"errors"
	"strings"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

var (
	// ErrMalformedAmount means a grammar matched but a money field did not parse.
	ErrMalformedAmount = errors.New("malformed amount")
	// ErrMalformedDate means a grammar matched but its date or time did not parse.
	ErrMalformedDate = errors.New("malformed date")
)

// Grammar recognizes one message format.
//
// Match returns (nil, nil) when the text does not match, and a non-nil error
// when it matches but a captured field is unusable.
type Grammar interface {
	Name() string
	Match(text string) (model.Event, error)
}

// Extractor tries its grammars in order; the first match wins.
type Extractor struct {
	grammars []Grammar
}

// New creates an Extractor over grammars, tried in the given order.
func New(grammars ...Grammar) *Extractor {
	return &Extractor{grammars: grammars}
}

// Default returns an Extractor with all built-in grammars. Times written in
// message text are interpreted in loc.
func Default(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return New(builtinGrammars(loc)...)
}

// Names returns the grammar names in priority order.
func (e *Extractor) Names() []string {
	names := make([]string, len(e.grammars))
	for i, g := range e.grammars {
		names[i] = g.Name()
	}
	return names
}

// Parse extracts an event from a message body. A body that matches no
// grammar yields Unrecognized and a nil error. A body whose matching grammar
// captured an unusable field yields Unrecognized and the reason.
func (e *Extractor) Parse(body string) (model.Event, error) {
	text := normalize(body)
	for _, g := range e.grammars {
		ev, err := g.Match(text)
		if err != nil {
			return model.Unrecognized{}, err
		}
		if ev != nil {
			return ev, nil
		}
	}
	return model.Unrecognized{}, nil
}

// Extract is Parse without the reason. It never fails.
func (e *Extractor) Extract(body string) model.Event {
	ev, _ := e.Parse(body)
	return ev
}

// normalize collapses line breaks and runs of whitespace so multi-line and
// single-line variants of a message look the same.
func normalize(body string) string {
	return strings.Join(strings.Fields(body), " ")
}
