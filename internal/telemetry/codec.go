package telemetry

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a buffer does not hold a valid frame.
var ErrMalformed = errors.New("malformed telemetry frame")

// field is one top-level entry of the frame message. Exactly one of floats
// and count is set: floats is an embedded message of fixed32 fields numbered
// from 1, count is a varint.
type field struct {
	num    protowire.Number
	floats []*float32
	count  *int32
}

func (v *Vec3) fields() []*float32 { return []*float32{&v.X, &v.Y, &v.Z} }
func (q *Quat) fields() []*float32 { return []*float32{&q.X, &q.Y, &q.Z, &q.W} }
func (h *Haptic) fields() []*float32 { return []*float32{&h.State, &h.Offset, &h.Force} }

func (o *Offset) fields() []*float32 {
	return []*float32{&o.EndoscopeOffset, &o.TubeOffset, &o.InstrumentSwitch, &o.AnimationValue, &o.PivotOffset}
}

func (s *SoftTissue) fields() []*float32 {
	return []*float32{
		&s.LigaFlavum, &s.DiscYellowSpace, &s.VeutroVessel,
		&s.Fat, &s.FibrousRings, &s.NucleusPulposus,
		&s.PLongitudinalLiga, &s.DuraMater, &s.NerveRoot,
	}
}

// layout lists the fields of f in wire order. Field numbers match
// api/proto/fusion.proto.
func (f *Frame) layout() []field {
	return []field{
		{num: 1, floats: f.EndoscopePos.fields()},
		{num: 2, floats: f.EndoscopeEuler.fields()},
		{num: 3, floats: f.TubePos.fields()},
		{num: 4, floats: f.TubeEuler.fields()},
		{num: 5, floats: f.Offset.fields()},
		{num: 6, floats: f.RotCoord.fields()},
		{num: 7, floats: f.PivotPos.fields()},
		{num: 8, count: &f.AblationCount},
		{num: 9, floats: f.Haptic.fields()},
		{num: 10, count: &f.HemostasisCount},
		{num: 11, count: &f.HemostasisIndex},
		{num: 12, floats: f.SoftTissue.fields()},
		{num: 13, count: &f.NerveRootDance},
		{num: 14, floats: f.RongeurPos.fields()},
		{num: 15, floats: f.RongeurRot.fields()},
	}
}

func floatsSize(floats []*float32) int {
	n := 0
	for i := range floats {
		n += protowire.SizeTag(protowire.Number(i+1)) + protowire.SizeFixed32()
	}
	return n
}

// Size returns the encoded message length without the length prefix.
func (f *Frame) Size() int {
	n := 0
	for _, fd := range f.layout() {
		n += protowire.SizeTag(fd.num)
		if fd.count != nil {
			n += protowire.SizeVarint(uint64(int64(*fd.count)))
			continue
		}
		n += protowire.SizeBytes(floatsSize(fd.floats))
	}
	return n
}

// EncodedLen returns the number of bytes Marshal produces.
func (f *Frame) EncodedLen() int {
	n := f.Size()
	return protowire.SizeVarint(uint64(n)) + n
}

// Marshal encodes f with every field present, prefixed by its varint length.
// The returned slice has exactly EncodedLen bytes.
func (f *Frame) Marshal() []byte {
	n := f.Size()
	b := make([]byte, 0, protowire.SizeVarint(uint64(n))+n)
	b = protowire.AppendVarint(b, uint64(n))
	return f.appendBody(b)
}

func (f *Frame) appendBody(b []byte) []byte {
	for _, fd := range f.layout() {
		if fd.count != nil {
			b = protowire.AppendTag(b, fd.num, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(int64(*fd.count)))
			continue
		}
		b = protowire.AppendTag(b, fd.num, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(floatsSize(fd.floats)))
		for i, v := range fd.floats {
			b = protowire.AppendTag(b, protowire.Number(i+1), protowire.Fixed32Type)
			b = protowire.AppendFixed32(b, math.Float32bits(*v))
		}
	}
	return b
}

// Unmarshal decodes a length-prefixed frame. The buffer must hold exactly one frame.
func Unmarshal(b []byte) (Frame, error) {
	size, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return Frame{}, fmt.Errorf("%w: length prefix: %v", ErrMalformed, protowire.ParseError(n))
	}
	body := b[n:]
	if uint64(len(body)) != size {
		return Frame{}, fmt.Errorf("%w: prefix says %d bytes, got %d", ErrMalformed, size, len(body))
	}
	var f Frame
	if err := f.unmarshalBody(body); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f *Frame) unmarshalBody(b []byte) error {
	byNum := make(map[protowire.Number]field)
	for _, fd := range f.layout() {
		byNum[fd.num] = fd
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		fd, known := byNum[num]
		switch {
		case known && fd.count != nil && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			*fd.count = int32(v)
			b = b[n:]
		case known && fd.floats != nil && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			if err := decodeFloats(v, fd.floats); err != nil {
				return fmt.Errorf("field %d: %w", num, err)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

func decodeFloats(b []byte, dst []*float32) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		idx := int(num) - 1
		if typ != protowire.Fixed32Type || idx < 0 || idx >= len(dst) {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		*dst[idx] = math.Float32frombits(v)
		b = b[n:]
	}
	return nil
}
