package lineprotocol

// TagKey is a validated tag name.
type TagKey struct {
	name string
}

// NewTagKey validates s as a tag key: no leading '_' and no newline.
func NewTagKey(s string) (TagKey, error) {
	if err := validateKey(KindTagKey, s); err != nil {
		return TagKey{}, err
	}
	return TagKey{name: s}, nil
}

func (k TagKey) String() string { return k.name }

// TagValue is a validated tag value. Unlike keys it may start with '_'.
type TagValue struct {
	value string
}

// NewTagValue validates s as a tag value: no newline.
func NewTagValue(s string) (TagValue, error) {
	if err := validateValue(KindTagValue, s); err != nil {
		return TagValue{}, err
	}
	return TagValue{value: s}, nil
}

func (v TagValue) String() string { return v.value }

// Tag is an indexed key/value pair of metadata on a point.
type Tag struct {
	key   TagKey
	value TagValue
}

// NewTag validates both halves of a tag.
func NewTag(key, value string) (Tag, error) {
	k, err := NewTagKey(key)
	if err != nil {
		return Tag{}, err
	}
	v, err := NewTagValue(value)
	if err != nil {
		return Tag{}, err
	}
	return Tag{key: k, value: v}, nil
}

// TagOf pairs an already validated key and value.
func TagOf(key TagKey, value TagValue) Tag {
	return Tag{key: key, value: value}
}

// Key returns the tag key.
func (t Tag) Key() TagKey { return t.key }

// Value returns the tag value.
func (t Tag) Value() TagValue { return t.value }

// String returns the rendered "key=value" form.
func (t Tag) String() string {
	return string(t.appendTo(nil))
}

func (t Tag) appendTo(dst []byte) []byte {
	dst = appendEscaped(dst, t.key.name, keyReserved)
	dst = append(dst, '=')
	return appendEscaped(dst, t.value.value, keyReserved)
}
