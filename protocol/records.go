package protocol

// Records is a batch of framed records traveling together through a
// feed/drain queue.
type Records [][]byte

// TotalLen is the batch's size on the wire.
func (recs Records) TotalLen() (total int64) {
	for _, r := range recs {
		total += int64(len(r))
	}
	return
}
