package bot

import (
	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
)

// replyForError turns a failed turn into something the contact can act on.
// A user message carried by a wrapped error takes precedence.
func replyForError(err error, name string) string {
	if msg := domerrors.GetUserMessage(err); msg != "" {
		return msg
	}
	switch domerrors.Kind(err) {
	case domerrors.KindAI:
		return aiUnavailable(name)
	case domerrors.KindStorage:
		return storageApology
	case domerrors.KindTimeout:
		return timeoutApology
	case domerrors.KindInvalidIndex:
		return invalidCartLine
	case domerrors.KindRateLimited:
		return rateLimitedMessage
	default:
		return genericApology
	}
}
