// Package mmwave decodes and processes the TLV frame stream produced by a
// TI mmWave radar sensor's detected-objects output, turning raw bytes into
// filtered, ego-motion-corrected point clouds, a smoothed self-speed
// estimate, and clustered objects checked against a safety zone.
package mmwave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
mmWave Detected-Objects Frame Format

Every frame starts with a fixed 40-byte header followed by NumTLVs
type-length-value blocks. All integers are little-endian.

FRAME HEADER (40 bytes):
├── MagicWord          uint64  offset  0  (0x0708050603040102 as an LE word)
├── Version            uint32  offset  8
├── TotalPacketLength  uint32  offset 12  (includes header and pad bytes)
├── Platform           uint32  offset 16
├── FrameNumber        uint32  offset 20
├── TimeCPUCycles      uint32  offset 24
├── NumDetectedObjects uint32  offset 28
├── NumTLVs            uint32  offset 32
└── SubframeNumber     uint32  offset 36

TLV BLOCK:
├── Type   uint32  (1=detected points, 7=side info, 2/3=profiles)
├── Length uint32  (payload bytes, excluding this 8-byte header)
└── Payload
    ├── Type 1: Length/16 records of x, y, z, doppler (float32 each)
    └── Type 7: NumDetectedObjects records of snr, noise (uint16, 0.1 dB)

The decoder walks the buffer strictly left to right and keeps no state
between calls. Pad bytes after the final TLV (TotalPacketLength is padded
to a 32-byte boundary by the firmware) are ignored. Frame delimiting is the
transport's job: callers hand in exactly one frame's bytes, normally cut
from the stream by Framer using the magic word.
*/

const (
	frameHeaderSize   = 40
	tlvHeaderSize     = 8
	detectedPointSize = 16 // 4 float32: x, y, z, doppler
	sideInfoRecSize   = 4  // 2 uint16: snr, noise
	sideInfoScale     = 0.1
)

// Decode errors. ErrTruncatedHeader and ErrTruncatedTLV mean the buffer
// ended inside a fixed-size structure; ErrMalformedStream means a TLV
// declared more payload than the buffer holds. All three are fatal for the
// frame only: the caller skips it and continues with the next frame.
var (
	ErrTruncatedHeader = errors.New("mmwave: truncated frame header")
	ErrTruncatedTLV    = errors.New("mmwave: truncated tlv header")
	ErrMalformedStream = errors.New("mmwave: tlv length exceeds frame")
)

// DecodeFrame parses one frame's bytes into a Frame. The input must contain
// a complete frame starting at offset 0; trailing pad bytes are allowed.
// Unrecognized TLV types are preserved as raw payload copies. On error the
// returned frame is nil and the input stream position should advance to the
// next frame boundary.
func DecodeFrame(raw []byte) (*Frame, error) {
	if len(raw) < frameHeaderSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncatedHeader, len(raw), frameHeaderSize)
	}

	var f Frame
	f.Header = FrameHeader{
		MagicWord:          binary.LittleEndian.Uint64(raw[0:8]),
		Version:            binary.LittleEndian.Uint32(raw[8:12]),
		TotalPacketLength:  binary.LittleEndian.Uint32(raw[12:16]),
		Platform:           binary.LittleEndian.Uint32(raw[16:20]),
		FrameNumber:        binary.LittleEndian.Uint32(raw[20:24]),
		TimeCPUCycles:      binary.LittleEndian.Uint32(raw[24:28]),
		NumDetectedObjects: binary.LittleEndian.Uint32(raw[28:32]),
		NumTLVs:            binary.LittleEndian.Uint32(raw[32:36]),
		SubframeNumber:     binary.LittleEndian.Uint32(raw[36:40]),
	}

	offset := frameHeaderSize
	for i := uint32(0); i < f.Header.NumTLVs; i++ {
		if len(raw)-offset < tlvHeaderSize {
			return nil, fmt.Errorf("%w: tlv %d at offset %d, %d bytes left",
				ErrTruncatedTLV, i, offset, len(raw)-offset)
		}
		tlvType := binary.LittleEndian.Uint32(raw[offset : offset+4])
		tlvLen := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		offset += tlvHeaderSize

		if tlvLen > len(raw)-offset {
			return nil, fmt.Errorf("%w: tlv %d type %d declares %d bytes, %d left",
				ErrMalformedStream, i, tlvType, tlvLen, len(raw)-offset)
		}
		payload := raw[offset : offset+tlvLen]
		offset += tlvLen

		switch tlvType {
		case TLVTypeDetectedPoints:
			f.TLVs = append(f.TLVs, TLV{Type: tlvType, Points: decodeDetectedPoints(payload, f.Header.FrameNumber)})
		case TLVTypeSideInfo:
			f.TLVs = append(f.TLVs, TLV{Type: tlvType, SideInfo: decodeSideInfo(payload, f.Header)})
		default:
			// Range/noise profiles and anything unknown: keep the bytes,
			// interpret nothing.
			blob := make([]byte, len(payload))
			copy(blob, payload)
			f.TLVs = append(f.TLVs, TLV{Type: tlvType, Raw: blob})
		}
	}

	Tracef("frame %d: %d tlvs, %d declared bytes", f.Header.FrameNumber, f.Header.NumTLVs, f.Header.TotalPacketLength)
	return &f, nil
}

// decodeDetectedPoints parses the Type 1 payload. A trailing partial record
// is dropped, not an error: firmware pads some frames short.
func decodeDetectedPoints(payload []byte, frameNum uint32) PointCloud {
	n := len(payload) / detectedPointSize
	if rem := len(payload) % detectedPointSize; rem != 0 {
		Diagf("frame %d: detected-points payload has %d trailing bytes, dropping partial record", frameNum, rem)
	}
	if n == 0 {
		return PointCloud{}
	}

	points := make(PointCloud, 0, n)
	for i := 0; i < n; i++ {
		rec := payload[i*detectedPointSize:]
		points = append(points, Point{
			X:       float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4]))),
			Y:       float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[4:8]))),
			Z:       float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12]))),
			Doppler: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[12:16]))),
		})
	}
	return points
}

// decodeSideInfo parses the Type 7 payload. The block must be exactly
// NumDetectedObjects records long; on mismatch the bytes are consumed but
// discarded and an empty list is returned, so detections simply carry no
// signal-quality data for this frame.
func decodeSideInfo(payload []byte, h FrameHeader) []SideInfoSample {
	expected := int(h.NumDetectedObjects) * sideInfoRecSize
	if len(payload) != expected {
		Diagf("frame %d: side-info length %d does not match %d detections (want %d), discarding block",
			h.FrameNumber, len(payload), h.NumDetectedObjects, expected)
		return []SideInfoSample{}
	}

	samples := make([]SideInfoSample, 0, h.NumDetectedObjects)
	for i := 0; i < int(h.NumDetectedObjects); i++ {
		rec := payload[i*sideInfoRecSize:]
		samples = append(samples, SideInfoSample{
			SNRDb:   float64(binary.LittleEndian.Uint16(rec[0:2])) * sideInfoScale,
			NoiseDb: float64(binary.LittleEndian.Uint16(rec[2:4])) * sideInfoScale,
		})
	}
	return samples
}
