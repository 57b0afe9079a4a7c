package lineprotocol

// Measurement names the series a point belongs to.
type Measurement struct {
	name string
}

// NewMeasurement validates s as a measurement name: no newline. A leading
// '_' is allowed.
func NewMeasurement(s string) (Measurement, error) {
	if err := validateMeasurement(s); err != nil {
		return Measurement{}, err
	}
	return Measurement{name: s}, nil
}

// String returns the unescaped name.
func (m Measurement) String() string {
	return m.name
}
