// Package codec converts between floating-point audio samples, 16-bit
// linear PCM, and the base64 transport encoding used on the wire.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeChunkSize bounds how much PCM is pushed through the base64
// encoder at once so large buffers keep a fixed working set.
const EncodeChunkSize = 32768

// Float32ToPCM16 converts mono float samples to 16-bit signed
// little-endian PCM. Samples are clamped to [-1, 1]; positive values
// scale by 32767 and negative values by 32768 so the full integer
// range is reachable without overflow.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

// PCM16ToBase64 encodes raw PCM bytes to standard base64, processing
// the input in EncodeChunkSize pieces.
func PCM16ToBase64(pcm []byte) string {
	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	for off := 0; off < len(pcm); off += EncodeChunkSize {
		end := off + EncodeChunkSize
		if end > len(pcm) {
			end = len(pcm)
		}
		// strings.Builder never returns a write error.
		enc.Write(pcm[off:end])
	}
	enc.Close()
	return sb.String()
}

// Base64ToPCM16 decodes a base64 payload back to raw PCM bytes.
func Base64ToPCM16(encoded string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return pcm, nil
}

// PCM16ToInt16 reinterprets little-endian PCM bytes as int16 samples.
// A trailing odd byte is ignored.
func PCM16ToInt16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return out
}

// Int16ToPCM16 serializes int16 samples as little-endian PCM bytes.
func Int16ToPCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}
