package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Record is the tagged-union tuple codec: [u16 field_count][(u8 tag[,payload])...]
// Grounded on original_source/core/engine/storage/Record.cpp, with one
// deliberate change (OQ5): all multi-byte fields are little-endian on disk,
// rather than the host-native byte order the C++ memcpy implementation used.
const (
	tagNull   byte = 0
	tagInt    byte = 1
	tagDouble byte = 2
	tagString byte = 3
	tagBool   byte = 4
)

func typeTag(v Value) byte {
	switch v.Kind() {
	case KindInt:
		return tagInt
	case KindDouble:
		return tagDouble
	case KindString:
		return tagString
	case KindBool:
		return tagBool
	default:
		return tagNull
	}
}

// SerializedSize returns the exact number of bytes EncodeRecord would write.
func SerializedSize(values []Value) int {
	size := 2
	for _, v := range values {
		size++
		switch v.Kind() {
		case KindInt:
			size += 4
		case KindDouble:
			size += 8
		case KindString:
			size += 2 + len(v.AsString())
		case KindBool:
			size++
		}
	}
	return size
}

// EncodeRecord serializes a tuple of Values into its on-disk record form.
func EncodeRecord(values []Value) []byte {
	buf := make([]byte, SerializedSize(values))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(values)))
	offset := 2

	for _, v := range values {
		buf[offset] = typeTag(v)
		offset++

		switch v.Kind() {
		case KindNull:
			// no payload
		case KindInt:
			binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(int32(v.AsInt())))
			offset += 4
		case KindDouble:
			binary.LittleEndian.PutUint64(buf[offset:offset+8], math.Float64bits(v.AsDouble()))
			offset += 8
		case KindString:
			s := v.AsString()
			binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(len(s)))
			offset += 2
			copy(buf[offset:offset+len(s)], s)
			offset += len(s)
		case KindBool:
			if v.AsBool() {
				buf[offset] = 1
			} else {
				buf[offset] = 0
			}
			offset++
		}
	}
	return buf
}

// DecodeRecord reverses EncodeRecord, returning an error for any truncated
// or malformed buffer instead of the original's thrown std::runtime_error.
func DecodeRecord(data []byte) ([]Value, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("decode record: too small: %w", ErrInvalidPage)
	}
	fieldCount := binary.LittleEndian.Uint16(data[0:2])
	offset := 2

	values := make([]Value, 0, fieldCount)
	for i := uint16(0); i < fieldCount; i++ {
		if offset >= len(data) {
			return nil, fmt.Errorf("decode record: unexpected end: %w", ErrInvalidPage)
		}
		tag := data[offset]
		offset++

		switch tag {
		case tagNull:
			values = append(values, NullValue())
		case tagInt:
			if offset+4 > len(data) {
				return nil, fmt.Errorf("decode record: truncated int: %w", ErrInvalidPage)
			}
			raw := int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
			values = append(values, IntValue(int64(raw)))
			offset += 4
		case tagDouble:
			if offset+8 > len(data) {
				return nil, fmt.Errorf("decode record: truncated double: %w", ErrInvalidPage)
			}
			bits := binary.LittleEndian.Uint64(data[offset : offset+8])
			values = append(values, DoubleValue(math.Float64frombits(bits)))
			offset += 8
		case tagString:
			if offset+2 > len(data) {
				return nil, fmt.Errorf("decode record: truncated string length: %w", ErrInvalidPage)
			}
			strLen := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
			offset += 2
			if offset+strLen > len(data) {
				return nil, fmt.Errorf("decode record: truncated string data: %w", ErrInvalidPage)
			}
			values = append(values, StringValue(string(data[offset:offset+strLen])))
			offset += strLen
		case tagBool:
			if offset >= len(data) {
				return nil, fmt.Errorf("decode record: truncated bool: %w", ErrInvalidPage)
			}
			values = append(values, BoolValue(data[offset] != 0))
			offset++
		default:
			return nil, fmt.Errorf("decode record: unknown type tag %d: %w", tag, ErrInvalidPage)
		}
	}
	return values, nil
}
