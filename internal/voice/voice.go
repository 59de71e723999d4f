// Package voice implements the bounded producer/consumer pipeline
// between microphone capture / speaker playback and the main tick
// loop (spec §5 "Optional auxiliary threads": "audio capture/playback
// and speech codec run on dedicated producer/consumer threads with
// bounded queues; they communicate with the main loop only via encoded
// byte packets sent through the normal RPC path"). Grounded on
// original_source/bge_network/stream.py's MicrophoneStream/
// SpeakerStream (a mutex-guarded queue drained in batches by
// encode()/decode()) and controllers.py's broadcast_voice/hear_voice
// RPC pair. The codec itself (original_source uses the `opus` module)
// is an external collaborator injected as Encoder/Decoder, since no
// audio codec library appears anywhere in the retrieved pack.
package voice

import (
	"gopkg.in/eapache/channels.v1"
)

// Encoder compresses raw PCM frames into one wire payload, mirroring
// MicrophoneStream.encode's batch-then-compress behaviour.
type Encoder interface {
	Encode(frames [][]byte) []byte
}

// Decoder expands one wire payload back into PCM chunks ready for
// playback, mirroring SpeakerStream.decode's decode-then-slice
// behaviour.
type Decoder interface {
	Decode(data []byte) [][]byte
}

// defaultQueueDepth bounds the ring buffer between the capture thread
// and the encode step; a full ring drops the oldest frame rather than
// blocking the capture thread, the same backpressure policy a fixed
// per-tick audio budget implies.
const defaultQueueDepth = 64

// MicrophoneStream batches raw PCM frames pushed by a capture thread
// and encodes them into one payload per Encode call.
type MicrophoneStream struct {
	frames  channels.Channel
	encoder Encoder
}

// NewMicrophoneStream builds a stream around the given encoder.
func NewMicrophoneStream(encoder Encoder) *MicrophoneStream {
	return &MicrophoneStream{
		frames:  channels.NewRingChannel(channels.BufferCap(defaultQueueDepth)),
		encoder: encoder,
	}
}

// PushFrame is called by the capture thread with one raw PCM frame.
func (m *MicrophoneStream) PushFrame(frame []byte) {
	m.frames.In() <- frame
}

// Encode drains every buffered frame and returns one encoded payload,
// or nil if nothing was buffered (spec: "Dump voice information and
// encode it for the server", controllers.py's broadcast_voice).
func (m *MicrophoneStream) Encode() []byte {
	var pending [][]byte
draining:
	for {
		select {
		case frame, ok := <-m.frames.Out():
			if !ok {
				break draining
			}
			pending = append(pending, frame.([]byte))
		default:
			break draining
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return m.encoder.Encode(pending)
}

// Close releases the underlying channel.
func (m *MicrophoneStream) Close() {
	m.frames.Close()
}

// SpeakerStream decodes inbound voice payloads into PCM chunks queued
// for a playback consumer thread, one instance per remote speaker
// (controllers.py: `self.voice_channels = defaultdict(SpeakerStream)`).
type SpeakerStream struct {
	chunks  channels.Channel
	decoder Decoder
}

// NewSpeakerStream builds a stream around the given decoder.
func NewSpeakerStream(decoder Decoder) *SpeakerStream {
	return &SpeakerStream{
		chunks:  channels.NewRingChannel(channels.BufferCap(defaultQueueDepth)),
		decoder: decoder,
	}
}

// Decode expands data into PCM chunks and queues them for playback
// (controllers.py's hear_voice -> SpeakerStream.decode).
func (s *SpeakerStream) Decode(data []byte) {
	for _, chunk := range s.decoder.Decode(data) {
		s.chunks.In() <- chunk
	}
}

// NextChunk blocks until the playback thread has a PCM chunk to write,
// or returns ok=false once the stream is closed.
func (s *SpeakerStream) NextChunk() (chunk []byte, ok bool) {
	v, ok := <-s.chunks.Out()
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Close releases the underlying channel.
func (s *SpeakerStream) Close() {
	s.chunks.Close()
}
