package lineprotocol

import "strings"

// reservedPrefix marks names owned by the database itself.
const reservedPrefix = "_"

// validateKey checks a measurement, tag key or field key.
//
// The reserved prefix is checked before the newline so that "_a\nb"
// reports ErrReservedPrefix.
func validateKey(kind, s string) error {
	if strings.HasPrefix(s, reservedPrefix) {
		return &ValidationError{Kind: kind, Value: s, Err: ErrReservedPrefix}
	}
	return validateValue(kind, s)
}

// validateValue checks a tag value or string field value.
func validateValue(kind, s string) error {
	if strings.IndexByte(s, '\n') >= 0 {
		return &ValidationError{Kind: kind, Value: s, Err: ErrNewlineNotAllowed}
	}
	return nil
}

// validateMeasurement only rejects newlines. Measurements may start with
// '_'.
func validateMeasurement(s string) error {
	return validateValue(KindMeasurement, s)
}
