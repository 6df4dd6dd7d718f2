package audio

import "context"

// DefaultChunkSize is the slice size handed to recognition backends.
const DefaultChunkSize = 4096

// Stream emits successive fixed-size slices of payload, in order, on the
// returned channel. The last slice may be shorter. The sequence is finite
// and single-pass; the channel is closed after the final slice or when ctx
// is canceled. Sending on the unbuffered channel is itself a scheduling
// point, so one large buffer never monopolizes a consumer goroutine.
func Stream(ctx context.Context, payload []byte, chunkSize int) <-chan []byte {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for off := 0; off < len(payload); off += chunkSize {
			end := off + chunkSize
			if end > len(payload) {
				end = len(payload)
			}
			select {
			case out <- payload[off:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
