package errorsx

// ReasonCode is a short machine-readable failure kind. Every error that
// leaves the recognition pipeline carries exactly one of these.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonMissingArgument     ReasonCode = "missing_argument"
	ReasonEntityNotFound      ReasonCode = "entity_not_found"
	ReasonUnsupportedLanguage ReasonCode = "unsupported_language"
	ReasonTranscodeFailed     ReasonCode = "transcode_failed"
	ReasonNoAudioStream       ReasonCode = "no_audio_stream"
	ReasonRecognitionFailed   ReasonCode = "recognition_failed"
	ReasonTimeout             ReasonCode = "timeout"
	ReasonInternal            ReasonCode = "internal"
)
