package mmwave

// TLV type ids emitted by the sensor's detected-objects output format.
// Types the pipeline does not interpret are carried as raw payloads so a
// frame can be re-examined later without re-reading the stream.
const (
	TLVTypeDetectedPoints = 1 // 16-byte records: x, y, z, doppler (float32)
	TLVTypeRangeProfile   = 2
	TLVTypeNoiseProfile   = 3
	TLVTypeSideInfo       = 7 // 4-byte records: snr, noise (uint16, 0.1 dB units)
)

// FrameHeader is the fixed 40-byte preamble of every frame.
//
// FrameNumber is assigned by the sensor and is monotonically non-decreasing
// across a stream, but is not guaranteed strictly increasing or contiguous;
// callers that need a dense index must count frames themselves.
type FrameHeader struct {
	MagicWord          uint64
	Version            uint32
	TotalPacketLength  uint32
	Platform           uint32
	FrameNumber        uint32
	TimeCPUCycles      uint32
	NumDetectedObjects uint32
	NumTLVs            uint32
	SubframeNumber     uint32
}

// SideInfoSample carries the per-detection signal quality attached by the
// side-info TLV. Values are already scaled to dB.
type SideInfoSample struct {
	SNRDb   float64
	NoiseDb float64
}

// TLV is one typed payload block of a frame. Exactly one of Points,
// SideInfo, or Raw is populated depending on Type.
type TLV struct {
	Type     uint32
	Points   PointCloud
	SideInfo []SideInfoSample
	Raw      []byte
}

// Frame is one decoded sensor frame: the header plus its payload blocks in
// wire order.
type Frame struct {
	Header FrameHeader
	TLVs   []TLV
}

// DetectedPoints returns the frame's point cloud with side info merged in.
// Side-info samples pair with detections by index; when the side-info block
// is missing or shorter than the cloud, the unmatched points keep
// HasSideInfo false. The returned slice is a copy.
func (f *Frame) DetectedPoints() PointCloud {
	var points PointCloud
	var side []SideInfoSample
	for _, tlv := range f.TLVs {
		switch tlv.Type {
		case TLVTypeDetectedPoints:
			if points == nil {
				points = tlv.Points
			}
		case TLVTypeSideInfo:
			if side == nil {
				side = tlv.SideInfo
			}
		}
	}
	if points == nil {
		return nil
	}

	out := make(PointCloud, len(points))
	copy(out, points)
	for i := range out {
		if i >= len(side) {
			break
		}
		out[i].SNR = side[i].SNRDb
		out[i].Noise = side[i].NoiseDb
		out[i].HasSideInfo = true
	}
	return out
}
