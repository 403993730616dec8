package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Progress is one block of the tool's -progress output.
type Progress struct {
	OutTime time.Duration
	Done    bool
}

// ScanProgress reads key=value progress blocks from r and calls fn at the
// end of each block. Unknown keys are ignored; a line that is not a
// key=value pair is an error.
func ScanProgress(r io.Reader, fn func(Progress)) error {
	var cur Progress
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("malformed progress line %q", line)
		}

		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys report microseconds.
			if value == "N/A" {
				continue
			}
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed progress value %q", line)
			}
			cur.OutTime = max(0, time.Duration(us)*time.Microsecond)
		case "progress":
			cur.Done = value == "end"
			fn(cur)
			if cur.Done {
				return nil
			}
		}
	}
	return scanner.Err()
}
