package controls

import "runtime"

// currentGoroutineID returns the calling goroutine's id, parsed from the
// "goroutine N [...]" header of its stack trace.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id int64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + int64(buf[i]-'0')
	}
	return id
}
