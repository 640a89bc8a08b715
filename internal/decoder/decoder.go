// Package decoder parses one raw dive record — already downloaded and
// linearised by the ringbuffer extractor — into header fields and a
// time-ordered sample stream.
package decoder

import (
	"encoding/binary"
	"time"

	"github.com/divebridge/divecore/internal/framing"
)

// FieldKind identifies a decodable header field.
type FieldKind int

const (
	FieldDiveTime FieldKind = iota
	FieldMaxDepth
	FieldGasMixCount
	FieldGasMix
)

// SampleKind identifies a decodable sample stream event.
type SampleKind int

const (
	SampleTime SampleKind = iota
	SampleDepth
	SampleEvent
	SampleVendor
)

// WarningBit names one of the six decodable warning flags emitted as
// EVENT samples.
type WarningBit int

const (
	WarnDecoStop WarningBit = iota
	WarnRBT
	WarnAscent
	WarnCeiling
	WarnWorkload
	WarnTransmitter
)

// Sample is one emitted event in the sample stream.
type Sample struct {
	Kind    SampleKind
	Time    int // seconds since dive start
	Depth   float64
	Warning WarningBit
	Vendor  []byte
}

// GasMix is one decoded gas mixture; fractions sum to 1.0.
type GasMix struct {
	Oxygen   float64
	Helium   float64
	Nitrogen float64
}

// ModelKind selects which of the three oxygen-fraction encodings a
// model uses. Real devices vary this per product; the reference
// decoder supports all three the spec names.
type ModelKind int

const (
	ModelFixedAir ModelKind = iota // fixed 21% oxygen, no mix byte
	ModelPercentByte
	ModelNibbleExpanded
)

// Decoder parses one raw dive buffer for a given model.
type Decoder struct {
	raw     []byte
	devtime uint32 // device tick counter at download time
	systime int64  // host wall-clock seconds at the same moment
	model   ModelKind
}

// New constructs a Decoder over raw dive bytes. devtime is the
// device's tick counter at download time; systime is the host's
// wall-clock seconds at that same moment, used to reconstruct the
// absolute time of a dive recorded in device-ticks-since-power-on.
func New(raw []byte, devtime uint32, systime int64, model ModelKind) *Decoder {
	return &Decoder{raw: raw, devtime: devtime, systime: systime, model: model}
}

// DateTime reconstructs the dive's absolute local start time from its
// on-device tick timestamp. The device ticks at twice realtime (the
// `/2` factor below is specific to this family).
func (d *Decoder) DateTime() (time.Time, error) {
	if len(d.raw) < 4 {
		return time.Time{}, dataFormatErr("dive buffer shorter than timestamp field")
	}
	diveTimestamp := binary.BigEndian.Uint32(d.raw[0:4])
	ticks := d.systime - int64(d.devtime-diveTimestamp)/2
	return time.Unix(ticks, 0).Local(), nil
}

// Field decodes one bit-packed header field.
func (d *Decoder) Field(kind FieldKind) (interface{}, error) {
	switch kind {
	case FieldDiveTime:
		return d.diveTime()
	case FieldMaxDepth:
		return d.maxDepth()
	case FieldGasMixCount:
		return d.gasMixCount()
	case FieldGasMix:
		return d.gasMixes()
	default:
		return nil, dataFormatErr("unknown field kind")
	}
}

func (d *Decoder) diveTime() (int, error) {
	if len(d.raw) < 6 {
		return 0, dataFormatErr("dive buffer too short for dive-time byte")
	}
	const hundredMinuteFlag = 1 << 7
	b5 := d.raw[5]
	minutes := framing.BCDDecode(b5 &^ hundredMinuteFlag)
	if b5&hundredMinuteFlag != 0 {
		minutes += 100
	}
	return int(minutes) * 60, nil
}

func (d *Decoder) maxDepth() (float64, error) {
	if len(d.raw) < 8 {
		return 0, dataFormatErr("dive buffer too short for max-depth field")
	}
	word := binary.BigEndian.Uint16(d.raw[6:8])
	raw := (word & 0xFFC0) >> 6
	return float64(raw) * 10.0 / 64.0, nil
}

func (d *Decoder) gasMixCount() (int, error) {
	if len(d.raw) < 9 {
		return 0, dataFormatErr("dive buffer too short for gas-mix-count byte")
	}
	return int(d.raw[8] & 0x0F), nil
}

func (d *Decoder) gasMixes() ([]GasMix, error) {
	count, err := d.gasMixCount()
	if err != nil {
		return nil, err
	}
	mixes := make([]GasMix, 0, count)
	for i := 0; i < count; i++ {
		off := 9 + i
		if off >= len(d.raw) {
			return nil, dataFormatErr("dive buffer too short for gas-mix bytes")
		}
		oxygen := d.decodeOxygen(d.raw[off])
		mixes = append(mixes, GasMix{
			Oxygen:   oxygen,
			Nitrogen: 1.0 - oxygen,
		})
	}
	return mixes, nil
}

func (d *Decoder) decodeOxygen(b byte) float64 {
	switch d.model {
	case ModelFixedAir:
		return 0.21
	case ModelPercentByte:
		return float64(b) / 100.0
	case ModelNibbleExpanded:
		n := b & 0x0F
		return (20.0 + 2.0*float64(n)) / 100.0
	default:
		return 0.21
	}
}

// Samples decodes the time-ordered sample stream, invoking cb once per
// emitted sample. It stops at the end of the buffer; a required
// trailing byte missing from a partially-filled final step is a
// DataFormatError.
func (d *Decoder) Samples(cb func(Sample) bool) error {
	const sampleInterval = 20
	const vendorInterval = 60
	const headerSize = 9

	pos := headerSize
	t := 0

	for pos+2 <= len(d.raw) {
		if !cb(Sample{Kind: SampleTime, Time: t}) {
			return nil
		}

		word := binary.BigEndian.Uint16(d.raw[pos : pos+2])
		depth := float64((word>>6)&0x3FF) * 10.0 / 64.0
		if !cb(Sample{Kind: SampleDepth, Time: t, Depth: depth}) {
			return nil
		}

		if pos+3 > len(d.raw) {
			return dataFormatErr("missing warning-flags byte")
		}
		flags := d.raw[pos+2]
		for i := 0; i < 6; i++ {
			if flags&(1<<uint(i)) != 0 {
				if !cb(Sample{Kind: SampleEvent, Time: t, Warning: WarningBit(i)}) {
					return nil
				}
			}
		}

		if t%vendorInterval == 0 {
			vendorLen := d.vendorBlobLen()
			if vendorLen > 0 {
				end := pos + 3 + vendorLen
				if end > len(d.raw) {
					return dataFormatErr("missing vendor blob bytes")
				}
				if !cb(Sample{Kind: SampleVendor, Time: t, Vendor: d.raw[pos+3 : end]}) {
					return nil
				}
				pos = end
			} else {
				pos += 3
			}
		} else {
			pos += 3
		}

		t += sampleInterval
	}

	return nil
}

// vendorBlobLen returns the vendor blob length for d's model. Go
// resolves unexported methods statically, so a type embedding Decoder
// cannot override this by shadowing it; the length is instead looked
// up by ModelKind so every model decodes through the same Samples
// loop.
func (d *Decoder) vendorBlobLen() int {
	return vendorBlobLenByModel[d.model]
}

// vendorBlobLenByModel gives the number of raw bytes following the
// warning-flags byte at each VENDOR checkpoint. ModelFixedAir carries
// no vendor payload; the other two models append a fixed-size blob
// whose own internal layout is device-specific and opaque here.
var vendorBlobLenByModel = map[ModelKind]int{
	ModelFixedAir:       0,
	ModelPercentByte:    2,
	ModelNibbleExpanded: 4,
}

type dataFormatError struct{ reason string }

func (e *dataFormatError) Error() string { return "decoder: " + e.reason }

func dataFormatErr(reason string) error { return &dataFormatError{reason: reason} }
