package transcript

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse converts SRT subtitle text into a Transcript. Cue blocks are emitted
// in file order with no re-sorting. Any malformed cue (missing or unparsable
// timestamps, start not strictly before end, empty content) aborts the whole
// parse with ErrMalformedInput; empty input yields an empty transcript.
func Parse(raw string) (*Transcript, error) {
	result := &Transcript{Source: raw}

	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(normalized) == "" {
		return result, nil
	}

	for i, block := range splitCueBlocks(normalized) {
		segment, err := parseCue(block)
		if err != nil {
			return nil, fmt.Errorf("%w: cue %d: %v", ErrMalformedInput, i+1, err)
		}
		result.Segments = append(result.Segments, segment)
	}
	return result, nil
}

func splitCueBlocks(text string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func parseCue(block string) (*Segment, error) {
	lines := strings.Split(block, "\n")

	// The numeric index line is optional; some tools omit it.
	pos := 0
	if pos < len(lines) && isIndexLine(lines[pos]) {
		pos++
	}
	if pos >= len(lines) {
		return nil, fmt.Errorf("missing timestamp line")
	}

	timing := lines[pos]
	if !strings.Contains(timing, "-->") {
		return nil, fmt.Errorf("missing timestamp arrow in %q", timing)
	}
	parts := strings.SplitN(timing, "-->", 2)
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return nil, fmt.Errorf("start timestamp: %v", err)
	}
	end, err := parseTimestamp(parts[1])
	if err != nil {
		return nil, fmt.Errorf("end timestamp: %v", err)
	}
	pos++

	text := strings.TrimSpace(strings.Join(lines[pos:], "\n"))
	segment, err := NewSegment(start, end, text)
	if err != nil {
		return nil, err
	}
	return segment, nil
}

func isIndexLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	_, err := strconv.Atoi(trimmed)
	return err == nil
}

func parseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// SRT uses a comma before milliseconds; tolerate the period variant.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
