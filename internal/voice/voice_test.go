package voice

import (
	"bytes"
	"testing"
	"time"
)

type concatEncoder struct{}

func (concatEncoder) Encode(frames [][]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

type splitDecoder struct{ chunkSize int }

func (d splitDecoder) Decode(data []byte) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := d.chunkSize
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func TestMicrophoneStreamEncodesBufferedFrames(t *testing.T) {
	m := NewMicrophoneStream(concatEncoder{})
	defer m.Close()

	m.PushFrame([]byte("ab"))
	m.PushFrame([]byte("cd"))
	time.Sleep(5 * time.Millisecond)

	got := m.Encode()
	if !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("Encode() = %q, want %q", got, "abcd")
	}
}

func TestMicrophoneStreamEncodeWithNoFramesReturnsNil(t *testing.T) {
	m := NewMicrophoneStream(concatEncoder{})
	defer m.Close()

	if got := m.Encode(); got != nil {
		t.Errorf("Encode() = %v, want nil with no buffered frames", got)
	}
}

func TestSpeakerStreamDecodesIntoChunks(t *testing.T) {
	s := NewSpeakerStream(splitDecoder{chunkSize: 2})
	defer s.Close()

	s.Decode([]byte("abcdef"))

	var got [][]byte
	for i := 0; i < 3; i++ {
		chunk, ok := s.NextChunk()
		if !ok {
			t.Fatalf("expected chunk %d, stream closed early", i)
		}
		got = append(got, chunk)
	}

	want := [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("chunk[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
