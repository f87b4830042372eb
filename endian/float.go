package endian

import "math"

// EncodeFloat32 writes the IEEE-754 float32 representation of v into buf[0:4]
// using engine's byte order. The caller must ensure len(buf) >= 4.
func EncodeFloat32(engine EndianEngine, buf []byte, v float32) {
	engine.PutUint32(buf, math.Float32bits(v))
}

// DecodeFloat32 reads a float32 from buf[0:4] using engine's byte order.
func DecodeFloat32(engine EndianEngine, buf []byte) float32 {
	return math.Float32frombits(engine.Uint32(buf))
}

// EncodeFloat64 writes the IEEE-754 float64 representation of v into buf[0:8]
// using engine's byte order. The caller must ensure len(buf) >= 8.
func EncodeFloat64(engine EndianEngine, buf []byte, v float64) {
	engine.PutUint64(buf, math.Float64bits(v))
}

// DecodeFloat64 reads a float64 from buf[0:8] using engine's byte order.
func DecodeFloat64(engine EndianEngine, buf []byte) float64 {
	return math.Float64frombits(engine.Uint64(buf))
}

// FitsFloat32 reports whether v round-trips exactly through a float32,
// i.e. float64(float32(v)) == v. The writer uses this to choose the
// FloatSize64As32 wire representation, which stores only 4 payload bytes
// for a float64 Value while still decoding back to the identical bit pattern.
func FitsFloat32(v float64) bool {
	return float64(float32(v)) == v
}
