package input

// movingAvg is a fixed-window moving average over integer readings.
type movingAvg struct {
	buf []int
}

func newMovingAvg(window int) *movingAvg {
	if window < 1 {
		window = 1
	}
	return &movingAvg{buf: make([]int, window)}
}

// push appends a reading and returns the window average.
func (m *movingAvg) push(v int) int {
	copy(m.buf, m.buf[1:])
	m.buf[len(m.buf)-1] = v
	sum := 0
	for _, b := range m.buf {
		sum += b
	}
	return sum / len(m.buf)
}

// recentAbove reports whether either of the two newest readings
// exceeds the threshold. Used to spot implausible zero samples from
// flaky pedal hardware.
func (m *movingAvg) recentAbove(threshold int) bool {
	start := len(m.buf) - 2
	if start < 0 {
		start = 0
	}
	for _, b := range m.buf[start:] {
		if b > threshold {
			return true
		}
	}
	return false
}

// last returns the newest reading.
func (m *movingAvg) last() int {
	return m.buf[len(m.buf)-1]
}
