package audio

import (
	"encoding/binary"
	"math"
)

// Capture devices deliver samples in whatever format the hardware
// negotiated. The segmentation core only understands 16-bit signed PCM, so
// each callback payload is converted up front. Interleaving across channels
// is preserved.

// Int16FromBytes reinterprets little-endian signed 16-bit PCM bytes as
// samples. A trailing odd byte is dropped.
func Int16FromBytes(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// Int16FromFloat32 converts 32-bit float samples in [-1, 1] to signed 16-bit
// PCM, clipping values outside that range.
func Int16FromFloat32(data []byte) []int16 {
	n := len(data) / 4
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		v := f * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
	return samples
}

// Int16FromInt32 converts signed 32-bit PCM to 16-bit by dropping the low
// 16 bits of each sample.
func Int16FromInt32(data []byte) []int16 {
	n := len(data) / 4
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		v := int32(binary.LittleEndian.Uint32(data[i*4:]))
		samples[i] = int16(v >> 16)
	}
	return samples
}

// Int16FromUint8 converts unsigned 8-bit PCM (silence at 128) to signed
// 16-bit.
func Int16FromUint8(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, v := range data {
		samples[i] = (int16(v) - 128) << 8
	}
	return samples
}
