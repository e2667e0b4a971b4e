package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadWAV is returned for audio the decoder cannot read.
var ErrBadWAV = errors.New("speech: unsupported wav")

// DecodeWAV extracts mono 16-bit PCM from a RIFF/WAVE file. Stereo input is
// down-mixed.
func DecodeWAV(b []byte) ([]int16, int, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: missing RIFF header", ErrBadWAV)
	}

	var (
		channels   uint16
		rate       uint32
		bits       uint16
		haveFormat bool
	)
	r := b[12:]
	for len(r) >= 8 {
		id := string(r[0:4])
		size := int(binary.LittleEndian.Uint32(r[4:8]))
		r = r[8:]
		if size > len(r) {
			size = len(r)
		}
		chunk := r[:size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", ErrBadWAV)
			}
			format := binary.LittleEndian.Uint16(chunk[0:2])
			channels = binary.LittleEndian.Uint16(chunk[2:4])
			rate = binary.LittleEndian.Uint32(chunk[4:8])
			bits = binary.LittleEndian.Uint16(chunk[14:16])
			if format != 1 || bits != 16 || channels == 0 {
				return nil, 0, fmt.Errorf("%w: format=%d bits=%d channels=%d", ErrBadWAV, format, bits, channels)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, 0, fmt.Errorf("%w: data before fmt", ErrBadWAV)
			}
			frames := size / (2 * int(channels))
			pcm := make([]int16, frames)
			for i := range pcm {
				var sum int
				for c := 0; c < int(channels); c++ {
					off := (i*int(channels) + c) * 2
					sum += int(int16(binary.LittleEndian.Uint16(chunk[off : off+2])))
				}
				pcm[i] = int16(sum / int(channels))
			}
			return pcm, int(rate), nil
		}

		// Chunks are word-aligned.
		if size%2 == 1 && size < len(r) {
			size++
		}
		r = r[size:]
	}
	return nil, 0, fmt.Errorf("%w: no data chunk", ErrBadWAV)
}

// EncodeWAV writes mono 16-bit PCM as a RIFF/WAVE file.
func EncodeWAV(pcm []int16, rate int) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(pcm) * 2)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, pcm)
	return buf.Bytes()
}
