package lineprotocol

import "strings"

// Reserved characters per token category.
//
// All reserved characters are ASCII, and no byte of a multi-byte UTF-8
// sequence is ASCII, so escaping can scan bytes without decoding runes.
const (
	measurementReserved = ", "
	keyReserved         = "=, "
	fieldStringReserved = `"\`

	// escapeSlack is the extra capacity reserved for inserted backslashes.
	escapeSlack = 8
)

// EscapeMeasurement escapes commas and spaces in a measurement name.
func EscapeMeasurement(s string) string {
	return escape(s, measurementReserved)
}

// EscapeTagKey escapes equals signs, commas and spaces in a tag key.
func EscapeTagKey(s string) string {
	return escape(s, keyReserved)
}

// EscapeTagValue escapes equals signs, commas and spaces in a tag value.
func EscapeTagValue(s string) string {
	return escape(s, keyReserved)
}

// EscapeFieldKey escapes equals signs, commas and spaces in a field key.
func EscapeFieldKey(s string) string {
	return escape(s, keyReserved)
}

// EscapeFieldString escapes double quotes and backslashes in a string field
// value. The surrounding quotes are not added.
func EscapeFieldString(s string) string {
	return escape(s, fieldStringReserved)
}

// escape returns s with a backslash inserted before every byte found in
// reserved. When nothing needs escaping s is returned as is, without
// allocating.
func escape(s, reserved string) string {
	first := strings.IndexAny(s, reserved)
	if first < 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+escapeSlack)
	buf = append(buf, s[:first]...)
	return string(appendEscapedFrom(buf, s, first, reserved))
}

// appendEscaped appends the escaped form of s to dst.
func appendEscaped(dst []byte, s, reserved string) []byte {
	first := strings.IndexAny(s, reserved)
	if first < 0 {
		return append(dst, s...)
	}
	dst = append(dst, s[:first]...)
	return appendEscapedFrom(dst, s, first, reserved)
}

// appendEscapedFrom escapes s[from:] into dst; s[from] is known to be reserved.
func appendEscapedFrom(dst []byte, s string, from int, reserved string) []byte {
	for i := from; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(reserved, c) >= 0 {
			dst = append(dst, '\\')
		}
		dst = append(dst, c)
	}
	return dst
}
