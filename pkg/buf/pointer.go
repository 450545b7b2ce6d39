package buf

// Pointer is a mutable read cursor into a Buf.
type Pointer struct {
	offset int64
}

func NewPointer(offset int64) *Pointer {
	return &Pointer{offset: offset}
}

func (p *Pointer) Get() int64 {
	return p.offset
}

func (p *Pointer) Set(offset int64) {
	p.offset = offset
}

// GetAndIncrement returns the current offset and moves the cursor by n.
func (p *Pointer) GetAndIncrement(n int64) int64 {
	off := p.offset
	p.offset += n
	return off
}
