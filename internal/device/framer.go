package device

import "strings"

// popLineFrame splits one newline-terminated line off the front of the
// pending buffer. A trailing carriage return is stripped so CRLF devices
// frame the same as LF-only ones.
func popLineFrame(buf string) (frame, rest string, ok bool) {
	idx := strings.IndexByte(buf, '\n')
	if idx < 0 {
		return "", buf, false
	}
	frame = strings.TrimSuffix(buf[:idx], "\r")
	return frame, buf[idx+1:], true
}

// appendPending grows the pending buffer while keeping it bounded; a device
// that never sends a newline cannot grow memory without limit.
func appendPending(existing, chunk string, max int) string {
	combined := existing + chunk
	if len(combined) <= max {
		return combined
	}
	return combined[len(combined)-max:]
}
