package domain

// Paragraph is one extracted paragraph of an authority. Paragraphs are
// produced once by the upstream extraction pipeline and never mutated;
// their ordinal IDs define the authoritative ordering for windowing.
type Paragraph struct {
	ID         int
	Text       string
	Page       int
	IsNumbered bool
	Number     int
	WordCount  int
	CharCount  int
}

// Empty reports whether the paragraph carries no usable text.
func (p Paragraph) Empty() bool {
	return p.WordCount == 0 && p.Text == ""
}
