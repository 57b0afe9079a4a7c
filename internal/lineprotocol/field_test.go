package lineprotocol

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewField_Encoding(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"signed", int64(42), "k=42i"},
		{"int", 42, "k=42i"},
		{"negative", int8(-7), "k=-7i"},
		{"unsigned", uint64(42), "k=42u"},
		{"uint32", uint32(42), "k=42u"},
		{"max unsigned", uint64(math.MaxUint64), "k=18446744073709551615u"},
		{"bool true", true, "k=true"},
		{"bool false", false, "k=false"},
		{"float", 3.5, "k=3.5"},
		{"float integral", 44.0, "k=44"},
		{"float32", float32(0.25), "k=0.25"},
		{"negative float", -64.4, "k=-64.4"},
		{"string", "FieldValue", `k="FieldValue"`},
		{"string with equals", "Contains=EqualSign", `k="Contains=EqualSign"`},
		{"string with quote", `spaces and " quote`, `k="spaces and \" quote"`},
		{"string all", `All = " \ , escaped`, `k="All = \" \\ , escaped"`},
		{"typed value", SignedValue(9), "k=9i"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewField("k", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.String())
		})
	}
}

func TestField_EscapesKey(t *testing.T) {
	value, err := StringValue(`"\`)
	require.NoError(t, err)

	key, err := NewFieldKey(`" =,`)
	require.NoError(t, err)

	assert.Equal(t, `"\ \=\,="\"\\"`, FieldOf(key, value).String())
}

func TestNewField_RejectsNaN(t *testing.T) {
	_, err := NewField("k", math.NaN())
	require.ErrorIs(t, err, ErrNotANumber)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindFieldValue, verr.Kind)

	_, err = NewField("k", float32(math.NaN()))
	assert.ErrorIs(t, err, ErrNotANumber)

	_, err = NewNotNaN(math.NaN())
	assert.ErrorIs(t, err, ErrNotANumber)
}

func TestNewField_AllowsInfinity(t *testing.T) {
	n, err := NewNotNaN(math.Inf(1))
	require.NoError(t, err)
	assert.True(t, math.IsInf(n.Float64(), 1))
}

func TestNewField_KeyRestrictions(t *testing.T) {
	_, err := NewField("_reserved", 1)
	assert.ErrorIs(t, err, ErrReservedPrefix)

	_, err = NewField("multi\nline", 1)
	assert.ErrorIs(t, err, ErrNewlineNotAllowed)

	_, err = NewField("mid_underscore", 1)
	assert.NoError(t, err)
}

func TestNewField_StringValueRejectsNewline(t *testing.T) {
	_, err := NewField("k", "line one\nline two")
	assert.ErrorIs(t, err, ErrNewlineNotAllowed)

	// A leading underscore is fine in values.
	_, err = NewField("k", "_value")
	assert.NoError(t, err)
}

func TestNewField_UnsupportedType(t *testing.T) {
	for _, v := range []any{nil, []byte("x"), struct{}{}, FieldValue{}, complex(1, 2)} {
		_, err := NewField("k", v)
		assert.ErrorIs(t, err, ErrUnsupportedValue, "value %#v", v)
	}
}

func TestFieldValue_KindAndInterface(t *testing.T) {
	s, err := StringValue("x")
	require.NoError(t, err)
	f, err := FloatValue(1.5)
	require.NoError(t, err)

	tests := []struct {
		value FieldValue
		kind  FieldKind
		want  any
	}{
		{s, KindString, "x"},
		{UnsignedValue(1), KindUnsigned, uint64(1)},
		{SignedValue(-1), KindSigned, int64(-1)},
		{f, KindFloat, 1.5},
		{BoolValue(true), KindBool, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.value.Kind())
		assert.Equal(t, tt.want, tt.value.Interface())
	}
	assert.Equal(t, "invalid", FieldValue{}.Kind().String())
	assert.Nil(t, FieldValue{}.Interface())
}

func TestNewTag(t *testing.T) {
	tag, err := NewTag("host", "server A")
	require.NoError(t, err)
	assert.Equal(t, `host=server\ A`, tag.String())
	assert.Equal(t, "host", tag.Key().String())
	assert.Equal(t, "server A", tag.Value().String())

	tag, err = NewTag("path", "a=b,c")
	require.NoError(t, err)
	assert.Equal(t, `path=a\=b\,c`, tag.String())
}

func TestNewTag_Restrictions(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
		kind    string
	}{
		{"reserved key", "_host", "a", ErrReservedPrefix, KindTagKey},
		{"newline key", "ho\nst", "a", ErrNewlineNotAllowed, KindTagKey},
		{"newline value", "host", "a\nb", ErrNewlineNotAllowed, KindTagValue},
		{"underscore value allowed", "host", "_a", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTag(tt.key, tt.value)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.kind, verr.Kind)
		})
	}
}

func TestNewMeasurement(t *testing.T) {
	m, err := NewMeasurement("cpu load")
	require.NoError(t, err)
	assert.Equal(t, "cpu load", m.String())

	m, err = NewMeasurement("_internal")
	require.NoError(t, err)
	assert.Equal(t, "_internal", m.String())

	_, err = NewMeasurement("cpu\n")
	assert.ErrorIs(t, err, ErrNewlineNotAllowed)
}

func TestValidateKey_PrefixCheckedFirst(t *testing.T) {
	err := validateKey(KindTagKey, "_a\nb")
	assert.ErrorIs(t, err, ErrReservedPrefix)
	assert.NotErrorIs(t, err, ErrNewlineNotAllowed)
}
