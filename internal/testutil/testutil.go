// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files: an HTTP status assertion, request and recorder
// constructors, and builders for synthetic sensor frames. The frame
// builders work on raw bytes only, so any package can use them without
// import cycles.
package testutil

import (
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
)

// TestingT is the subset of testing.T that AssertStatusCode reports
// through. Tests of the helper itself substitute a recorder here.
type TestingT interface {
	Helper()
	Errorf(format string, args ...interface{})
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t TestingT, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// MagicBytes is the sensor frame delimiter as it appears on the wire.
var MagicBytes = []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0x08, 0x07}

// TLVSpec is one type-length-value block for BuildRadarFrame. The declared
// length is always derived from the payload; craft a payload of the wrong
// size to test length handling.
type TLVSpec struct {
	Type    uint32
	Payload []byte
}

// BuildRadarFrame assembles a complete sensor frame: magic word, the rest
// of the 40-byte header with TotalPacketLength computed from the content,
// then each TLV behind its 8-byte header. numDetected is written into the
// header as is, so tests can make it disagree with the side-info payload.
func BuildRadarFrame(frameNumber, numDetected uint32, tlvs ...TLVSpec) []byte {
	total := 40
	for _, tlv := range tlvs {
		total += 8 + len(tlv.Payload)
	}

	buf := make([]byte, 0, total)
	buf = append(buf, MagicBytes...)
	buf = appendU32(buf, 0x03040005) // version
	buf = appendU32(buf, uint32(total))
	buf = appendU32(buf, 0x000A6843) // platform
	buf = appendU32(buf, frameNumber)
	buf = appendU32(buf, 123456789) // cpu cycles
	buf = appendU32(buf, numDetected)
	buf = appendU32(buf, uint32(len(tlvs)))
	buf = appendU32(buf, 0) // subframe

	for _, tlv := range tlvs {
		buf = appendU32(buf, tlv.Type)
		buf = appendU32(buf, uint32(len(tlv.Payload)))
		buf = append(buf, tlv.Payload...)
	}
	return buf
}

// PointPayload encodes detected points in the Type 1 wire format:
// x, y, z, doppler as float32 per point.
func PointPayload(points [][4]float32) []byte {
	buf := make([]byte, 0, len(points)*16)
	for _, p := range points {
		for _, v := range p {
			buf = appendU32(buf, math.Float32bits(v))
		}
	}
	return buf
}

// SideInfoPayload encodes side info in the Type 7 wire format: snr, noise
// as uint16 per detection, in 0.1 dB units.
func SideInfoPayload(samples [][2]uint16) []byte {
	buf := make([]byte, 0, len(samples)*4)
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, s[0])
		buf = binary.LittleEndian.AppendUint16(buf, s[1])
	}
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}
