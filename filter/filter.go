// Package filter provides implementations of the content-filter collaborator
// invoked by the broadcast engine before any message is delivered or logged.
// The engine treats any error as "forward the original text": availability
// wins over strict filtering.
package filter

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"chat-relay/moderation"
)

// Passthrough returns the text unchanged.
type Passthrough struct{}

func (Passthrough) Apply(text string) (string, error) {
	return text, nil
}

// Moderation censors messages in process with the Aho-Corasick moderator.
type Moderation struct {
	moderator moderation.Moderator
	log       *slog.Logger
}

func NewModeration(moderator moderation.Moderator, log *slog.Logger) *Moderation {
	return &Moderation{moderator: moderator, log: log}
}

func (f *Moderation) Apply(text string) (string, error) {
	censored, words := f.moderator.Censor(text)
	if len(words) > 0 {
		info := whatlanggo.Detect(text)
		f.log.Debug("Censored message",
			"words", len(words),
			"lang", info.Lang.Iso6391())
	}
	return censored, nil
}
