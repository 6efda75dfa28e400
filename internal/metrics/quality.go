package metrics

import "github.com/ralphcore/ralph/internal/store"

// QualityInputs are the flags a session/run's quality derives from.
// Missing/TooLarge/TimedOut/ErrorOccurred describe the state of the event
// stream or token accounting itself, not anything inside the parsed events.
type QualityInputs struct {
	Missing         bool
	TooLarge        bool
	TimedOut        bool
	ErrorOccurred   bool
	ParseErrorCount int
	TokensMissing   bool
}

// DeriveQuality ranks worst-first: ok < partial < missing < too_large <
// timeout < error; the first applicable flag (checked worst to best) wins.
func DeriveQuality(in QualityInputs) store.RunQuality {
	switch {
	case in.ErrorOccurred:
		return store.QualityError
	case in.TimedOut:
		return store.QualityTimeout
	case in.TooLarge:
		return store.QualityTooLarge
	case in.Missing:
		return store.QualityMissing
	case in.ParseErrorCount > 0 || in.TokensMissing:
		return store.QualityPartial
	default:
		return store.QualityOK
	}
}
