// Package rowchunk partitions a PNG image's raw scanlines into row-aligned
// chunks for independent, dictionary-chained processing, the in-memory
// analogue of splitting a video into scene-bounded chunks for parallel
// encoding.
package rowchunk

// Descriptor identifies one row-aligned partition of the image: its first
// row index, its row count, the byte range it occupies within the caller's
// row buffer, and its submission sequence number.
type Descriptor struct {
	FirstRow  int
	RowCount  int
	ByteStart int
	ByteEnd   int
	Seq       int
}

// Partitioner accumulates whole rows and cuts a new Descriptor whenever the
// accumulated byte count reaches the target chunk size, at the next whole
// row boundary — chunk size is therefore a lower bound, not exact, and the
// final chunk (cut at Finish) may be smaller than the target.
type Partitioner struct {
	stride      int
	targetBytes int
	nextSeq     int

	pendingFirstRow int
	pendingRows     int
	pendingBytes    int
	byteCursor      int
}

// NewPartitioner creates a partitioner for rows of the given stride (bytes
// per row), cutting chunks no smaller than targetBytes.
func NewPartitioner(stride, targetBytes int) *Partitioner {
	return &Partitioner{stride: stride, targetBytes: targetBytes}
}

// AddRows records n additional whole rows as pending and returns any
// Descriptors that become ready to cut as a result (zero or more — a single
// AddRows call covering many rows may cross the target multiple times).
func (p *Partitioner) AddRows(n int) []Descriptor {
	var cut []Descriptor
	for n > 0 {
		p.pendingRows++
		p.pendingBytes += p.stride
		p.byteCursor += p.stride
		n--
		if p.pendingBytes >= p.targetBytes {
			cut = append(cut, p.cut())
		}
	}
	return cut
}

// Finish cuts any remaining pending rows as the final, possibly undersized,
// chunk. It returns nil if there are no pending rows.
func (p *Partitioner) Finish() *Descriptor {
	if p.pendingRows == 0 {
		return nil
	}
	d := p.cut()
	return &d
}

func (p *Partitioner) cut() Descriptor {
	d := Descriptor{
		FirstRow:  p.pendingFirstRow,
		RowCount:  p.pendingRows,
		ByteStart: p.byteCursor - p.pendingBytes,
		ByteEnd:   p.byteCursor,
		Seq:       p.nextSeq,
	}
	p.nextSeq++
	p.pendingFirstRow += p.pendingRows
	p.pendingRows = 0
	p.pendingBytes = 0
	return d
}
