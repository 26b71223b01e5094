package bars

import (
	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/interval"
)

// Series is a bounded ring buffer of bars for one timeframe, ordered by start
// timestamp with no gaps once initialized. When full, pushing evicts the
// oldest bar.
type Series struct {
	Timeframe interval.Timeframe

	buf   []marketdatav1.Bar
	head  int
	count int
}

// NewSeries creates a series holding at most capacity bars.
func NewSeries(tf interval.Timeframe, capacity int) *Series {
	if capacity <= 0 {
		capacity = 1
	}
	return &Series{
		Timeframe: tf,
		buf:       make([]marketdatav1.Bar, capacity),
	}
}

// Len returns the number of bars currently held.
func (s *Series) Len() int {
	return s.count
}

// Push appends a bar, evicting the oldest when the buffer is full.
func (s *Series) Push(bar marketdatav1.Bar) {
	idx := (s.head + s.count) % len(s.buf)
	s.buf[idx] = bar
	if s.count < len(s.buf) {
		s.count++
		return
	}
	s.head = (s.head + 1) % len(s.buf)
}

// Current returns a pointer to the most recent bar for in-place mutation by
// the single writer. Returns nil when the series is empty.
func (s *Series) Current() *marketdatav1.Bar {
	if s.count == 0 {
		return nil
	}
	idx := (s.head + s.count - 1) % len(s.buf)
	return &s.buf[idx]
}

// At returns the i-th bar oldest-first.
func (s *Series) At(i int) marketdatav1.Bar {
	return s.buf[(s.head+i)%len(s.buf)]
}

// Latest copies out the most recent n bars, oldest first, including the
// still-open bar. n <= 0 or n > Len returns everything.
func (s *Series) Latest(n int) []marketdatav1.Bar {
	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]marketdatav1.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = s.At(s.count - n + i)
	}
	return out
}
