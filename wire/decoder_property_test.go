package wire

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// TestDecoderSplitAtEveryOffset feeds one frame split at every possible byte
// boundary across two writes and requires the decode to match the unsplit
// result exactly.
func TestDecoderSplitAtEveryOffset(t *testing.T) {
	stream := []byte("event: a2ui\ndata: {\"dataModelUpdate\":{\"path\":\"a/b\",\"contents\":[{\"key\":\"c\",\"valueNumber\":5}]}}\n\n")

	whole := NewDecoder().Write(stream)
	require.Len(t, whole, 1)

	for i := 0; i <= len(stream); i++ {
		d := NewDecoder()
		frames := d.Write(stream[:i])
		frames = append(frames, d.Write(stream[i:])...)
		require.Len(t, frames, 1, "split at %d", i)
		require.Equal(t, whole[0].Event, frames[0].Event, "split at %d", i)
		require.Equal(t, string(whole[0].Data), string(frames[0].Data), "split at %d", i)
	}
}

// TestDecoderChunkingInvariance renders random frame sequences, re-chunks the
// byte stream at random boundaries, and requires chunked decoding to yield
// the same frames as one whole write.
func TestDecoderChunkingInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("chunk boundaries never change decoded frames", prop.ForAll(
		func(tc chunkingCase) bool {
			stream := renderFrames(tc.frames)

			whole := NewDecoder().Write(stream)

			d := NewDecoder()
			var chunked []Frame
			rest := stream
			for _, cut := range tc.cuts {
				if cut > len(rest) {
					cut = len(rest)
				}
				chunked = append(chunked, d.Write(rest[:cut])...)
				rest = rest[cut:]
			}
			chunked = append(chunked, d.Write(rest)...)

			if len(whole) != len(chunked) {
				return false
			}
			for i := range whole {
				if whole[i].Event != chunked[i].Event {
					return false
				}
				if string(whole[i].Data) != string(chunked[i].Data) {
					return false
				}
			}
			return true
		},
		genChunkingCase(),
	))

	properties.TestingRun(t)
}

type testFrame struct {
	event string
	data  string
}

type chunkingCase struct {
	frames []testFrame
	cuts   []int
}

func renderFrames(frames []testFrame) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, ": keepalive\n"...)
		out = append(out, "event: "...)
		out = append(out, f.event...)
		out = append(out, '\n')
		out = append(out, "data: "...)
		out = append(out, f.data...)
		out = append(out, "\n\n"...)
	}
	return out
}

func genEventName() gopter.Gen {
	return gen.OneConstOf("text", "tool_start", "tool_end", "a2ui", "status", "error", "complete", "switch_context")
}

// genDataValue generates newline-free payload text; payload framing is the
// decoder's concern, not JSON validity.
func genDataValue() gopter.Gen {
	return gen.IntRange(0, 40).FlatMap(func(length any) gopter.Gen {
		return gen.SliceOfN(length.(int), gen.RuneRange('!', '~')).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))
}

func genTestFrame() gopter.Gen {
	return gopter.CombineGens(genEventName(), genDataValue()).Map(func(vals []any) testFrame {
		return testFrame{event: vals[0].(string), data: vals[1].(string)}
	})
}

func genChunkingCase() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(4, genTestFrame()),
		gen.SliceOf(gen.IntRange(0, 32)),
	).Map(func(vals []any) chunkingCase {
		return chunkingCase{
			frames: vals[0].([]testFrame),
			cuts:   vals[1].([]int),
		}
	})
}
