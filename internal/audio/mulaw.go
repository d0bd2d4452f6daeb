package audio

// G.711 μ-law companding for the 8kHz telephony media path.
// Twilio Media Streams carry audio/x-mulaw; the recognizer and synthesizer
// both work in 16-bit linear PCM, so every frame crosses this boundary twice.

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// LinearToMulaw compands one 16-bit linear sample to a μ-law byte.
func LinearToMulaw(sample int16) byte {
	v := int32(sample)
	sign := byte(0)
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > mulawClip {
		v = mulawClip
	}
	v += mulawBias

	exp := 7
	for mask := int32(0x4000); exp > 0 && v&mask == 0; mask >>= 1 {
		exp--
	}
	mant := byte((v >> uint(exp+3)) & 0x0F)
	return ^(sign | byte(exp)<<4 | mant)
}

// MulawToLinear expands one μ-law byte back to a 16-bit linear sample.
func MulawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F

	v := (int32(mant) << 3) + mulawBias
	v <<= uint(exp)
	v -= mulawBias
	if v > 32767 {
		v = 32767
	}
	if sign != 0 {
		v = -v
		if v < -32768 {
			v = -32768
		}
	}
	return int16(v)
}

// EncodeMulaw compands a linear buffer sample by sample.
func EncodeMulaw(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = LinearToMulaw(s)
	}
	return out
}

// DecodeMulaw expands a μ-law buffer sample by sample.
func DecodeMulaw(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = MulawToLinear(b)
	}
	return out
}
