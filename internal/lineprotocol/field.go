package lineprotocol

import (
	"fmt"
	"math"
	"strconv"
)

// FieldKind identifies which variant a FieldValue holds.
type FieldKind uint8

// Field value variants. The zero FieldKind is not a valid variant.
const (
	KindString FieldKind = iota + 1
	KindUnsigned
	KindSigned
	KindFloat
	KindBool
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// NotNaN is a float64 that is guaranteed not to be NaN.
type NotNaN struct {
	f float64
}

// NewNotNaN wraps f, returning ErrNotANumber if f is NaN.
func NewNotNaN(f float64) (NotNaN, error) {
	if math.IsNaN(f) {
		return NotNaN{}, ErrNotANumber
	}
	return NotNaN{f: f}, nil
}

// Float64 returns the wrapped value.
func (n NotNaN) Float64() float64 {
	return n.f
}

// FieldValue is the data part of a field: exactly one of a string, an
// unsigned integer, a signed integer, a non-NaN float or a boolean.
type FieldValue struct {
	kind FieldKind
	str  string
	u    uint64
	i    int64
	f    NotNaN
	b    bool
}

// StringValue returns a string field value, rejecting embedded newlines.
func StringValue(s string) (FieldValue, error) {
	if err := validateValue(KindFieldValue, s); err != nil {
		return FieldValue{}, err
	}
	return FieldValue{kind: KindString, str: s}, nil
}

// UnsignedValue returns an unsigned integer field value.
func UnsignedValue(u uint64) FieldValue {
	return FieldValue{kind: KindUnsigned, u: u}
}

// SignedValue returns a signed integer field value.
func SignedValue(i int64) FieldValue {
	return FieldValue{kind: KindSigned, i: i}
}

// FloatValue returns a float field value, rejecting NaN.
func FloatValue(f float64) (FieldValue, error) {
	n, err := NewNotNaN(f)
	if err != nil {
		return FieldValue{}, &ValidationError{Kind: KindFieldValue, Value: "NaN", Err: err}
	}
	return FieldValue{kind: KindFloat, f: n}, nil
}

// NotNaNValue returns a float field value from an already checked float.
func NotNaNValue(n NotNaN) FieldValue {
	return FieldValue{kind: KindFloat, f: n}
}

// BoolValue returns a boolean field value.
func BoolValue(b bool) FieldValue {
	return FieldValue{kind: KindBool, b: b}
}

// NewFieldValue converts a Go value into a FieldValue.
//
// Supported inputs:
//   - string
//   - uint, uint8, uint16, uint32, uint64 (unsigned)
//   - int, int8, int16, int32, int64 (signed)
//   - float32, float64 (float; NaN is rejected)
//   - bool
//   - FieldValue and NotNaN (used as is)
//
// Returns ErrUnsupportedValue for any other type.
func NewFieldValue(v any) (FieldValue, error) {
	switch val := v.(type) {
	case FieldValue:
		if val.kind == 0 {
			return FieldValue{}, &ValidationError{Kind: KindFieldValue, Value: "zero FieldValue", Err: ErrUnsupportedValue}
		}
		return val, nil
	case NotNaN:
		return NotNaNValue(val), nil
	case string:
		return StringValue(val)
	case bool:
		return BoolValue(val), nil
	case float64:
		return FloatValue(val)
	case float32:
		return FloatValue(float64(val))
	case int:
		return SignedValue(int64(val)), nil
	case int8:
		return SignedValue(int64(val)), nil
	case int16:
		return SignedValue(int64(val)), nil
	case int32:
		return SignedValue(int64(val)), nil
	case int64:
		return SignedValue(val), nil
	case uint:
		return UnsignedValue(uint64(val)), nil
	case uint8:
		return UnsignedValue(uint64(val)), nil
	case uint16:
		return UnsignedValue(uint64(val)), nil
	case uint32:
		return UnsignedValue(uint64(val)), nil
	case uint64:
		return UnsignedValue(val), nil
	default:
		return FieldValue{}, &ValidationError{Kind: KindFieldValue, Value: fmt.Sprintf("%T", v), Err: ErrUnsupportedValue}
	}
}

// Kind returns the variant held by v.
func (v FieldValue) Kind() FieldKind {
	return v.kind
}

// Interface returns the held value as string, uint64, int64, float64 or bool.
func (v FieldValue) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindUnsigned:
		return v.u
	case KindSigned:
		return v.i
	case KindFloat:
		return v.f.Float64()
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String returns the line protocol encoding of the value.
func (v FieldValue) String() string {
	return string(v.appendTo(nil))
}

// appendTo appends the encoded value. Every variant must be handled here.
func (v FieldValue) appendTo(dst []byte) []byte {
	switch v.kind {
	case KindString:
		dst = append(dst, '"')
		dst = appendEscaped(dst, v.str, fieldStringReserved)
		return append(dst, '"')
	case KindUnsigned:
		dst = strconv.AppendUint(dst, v.u, 10)
		return append(dst, 'u')
	case KindSigned:
		dst = strconv.AppendInt(dst, v.i, 10)
		return append(dst, 'i')
	case KindFloat:
		return strconv.AppendFloat(dst, v.f.Float64(), 'f', -1, 64)
	case KindBool:
		return strconv.AppendBool(dst, v.b)
	default:
		panic(fmt.Sprintf("lineprotocol: field value has invalid kind %d", v.kind))
	}
}

// FieldKey is a validated field name.
type FieldKey struct {
	name string
}

// NewFieldKey validates s as a field key.
func NewFieldKey(s string) (FieldKey, error) {
	if err := validateKey(KindFieldKey, s); err != nil {
		return FieldKey{}, err
	}
	return FieldKey{name: s}, nil
}

// String returns the unescaped key.
func (k FieldKey) String() string {
	return k.name
}

// Field is a key/value pair carrying the actual data of a point. Fields are
// not indexed by the database.
type Field struct {
	key   FieldKey
	value FieldValue
}

// NewField validates key and converts value with NewFieldValue.
//
// Example:
//
//	f, err := lineprotocol.NewField("power_watts", 23.5)
func NewField(key string, value any) (Field, error) {
	k, err := NewFieldKey(key)
	if err != nil {
		return Field{}, err
	}
	v, err := NewFieldValue(value)
	if err != nil {
		return Field{}, err
	}
	return Field{key: k, value: v}, nil
}

// FieldOf pairs an already validated key and value.
func FieldOf(key FieldKey, value FieldValue) Field {
	return Field{key: key, value: value}
}

// Key returns the field key.
func (f Field) Key() FieldKey { return f.key }

// Value returns the field value.
func (f Field) Value() FieldValue { return f.value }

// String returns the rendered "key=value" form.
func (f Field) String() string {
	return string(f.appendTo(nil))
}

func (f Field) appendTo(dst []byte) []byte {
	dst = appendEscaped(dst, f.key.name, keyReserved)
	dst = append(dst, '=')
	return f.value.appendTo(dst)
}
