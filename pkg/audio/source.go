package audio

// Canonical PCM parameters expected by every recognition backend. The
// transcoder normalizes all input media to exactly this shape.
const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16

	FormatWAV = "wav"
	CodecPCM  = "pcm"
)

// Source is an immutable audio input: either a filesystem path or an
// in-memory buffer, never both. RawPCM marks buffers that already hold
// canonical PCM and must bypass the transcoder.
type Source struct {
	Path   string
	Data   []byte
	RawPCM bool
}

// FromPath builds a path-backed source.
func FromPath(path string) Source {
	return Source{Path: path}
}

// FromBytes builds an in-memory source of unknown codec/container.
func FromBytes(data []byte) Source {
	return Source{Data: data}
}

// FromPCM builds an in-memory source that already holds canonical raw PCM.
func FromPCM(data []byte) Source {
	return Source{Data: data, RawPCM: true}
}

// Metadata describes one recognition attempt's audio stream. Constructed
// once per attempt with the resolved language and canonical parameters.
type Metadata struct {
	Language   string
	Format     string
	Codec      string
	BitDepth   int
	SampleRate int
	Channels   int
}

// NewMetadata returns canonical PCM metadata for the given language.
func NewMetadata(language string) Metadata {
	return Metadata{
		Language:   language,
		Format:     FormatWAV,
		Codec:      CodecPCM,
		BitDepth:   BitDepth,
		SampleRate: SampleRate,
		Channels:   Channels,
	}
}
