package slides

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// ErrNotPNG is returned by WithDPI for non-PNG input.
var ErrNotPNG = errors.New("slides: not a PNG stream")

const ihdrChunkLen = 4 + 4 + 13 + 4

// WithDPI inserts a pHYs chunk after IHDR declaring dpi in both directions.
// image/png never writes pHYs, so the input is assumed not to carry one.
func WithDPI(data []byte, dpi int) ([]byte, error) {
	if len(data) < len(pngSignature)+ihdrChunkLen || !bytes.HasPrefix(data, pngSignature) {
		return nil, ErrNotPNG
	}
	if string(data[12:16]) != "IHDR" {
		return nil, ErrNotPNG
	}

	ppm := uint32(math.Round(float64(dpi) / 0.0254))

	chunk := make([]byte, 0, 4+4+9+4)
	chunk = binary.BigEndian.AppendUint32(chunk, 9)
	chunk = append(chunk, "pHYs"...)
	chunk = binary.BigEndian.AppendUint32(chunk, ppm)
	chunk = binary.BigEndian.AppendUint32(chunk, ppm)
	chunk = append(chunk, 1) // unit: meter
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	at := len(pngSignature) + ihdrChunkLen
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:at]...)
	out = append(out, chunk...)
	out = append(out, data[at:]...)
	return out, nil
}

// ReadDPI returns the horizontal DPI from a PNG's pHYs chunk, or 0 when
// the chunk is absent.
func ReadDPI(data []byte) int {
	if !bytes.HasPrefix(data, pngSignature) {
		return 0
	}
	for off := len(pngSignature); off+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[off:]))
		typ := string(data[off+4 : off+8])
		if off+8+n+4 > len(data) {
			return 0
		}
		if typ == "pHYs" && n == 9 && data[off+16] == 1 {
			ppm := binary.BigEndian.Uint32(data[off+8:])
			return int(math.Round(float64(ppm) * 0.0254))
		}
		if typ == "IDAT" || typ == "IEND" {
			return 0
		}
		off += 8 + n + 4
	}
	return 0
}
