package engine

// IDGenerator hands out unique, monotonically increasing take ids on the
// frontend side (device ids are slot indexes, not generated). Zero is reserved as "no id" so it is never
// issued.
type IDGenerator struct {
	next uint32
}

// Next returns the next id, starting at 1.
func (g *IDGenerator) Next() uint32 {
	g.next++
	return g.next
}
