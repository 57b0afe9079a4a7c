package lineprotocol

// PointConvertible is anything that can be turned into a Point: a Point
// itself, a *PointBuilder, or a caller's own record type.
//
// Batch constructors and Batch.Push run every input through ToPoint, so
// custom types get the same validation as hand-built points.
type PointConvertible interface {
	ToPoint() (Point, error)
}

// compile-time checks
var (
	_ PointConvertible = Point{}
	_ PointConvertible = (*PointBuilder)(nil)
)
