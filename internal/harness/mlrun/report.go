package mlrun

import (
	"regexp"
	"strconv"
)

// The unit-test binary reports in one of three shapes. Precedence is fixed:
// an explicit FAILED line beats everything, then a bare OK line, then a
// counts line; anything else falls back to the exit code. The OK form only
// matches a whole line to limit false positives from solutions that print
// "OK" themselves mid-line.
var (
	failedLineRe = regexp.MustCompile(`(?im)^FAILED:.*errors:\s*(\d+).*failures:\s*(\d+)`)
	okLineRe     = regexp.MustCompile(`(?m)^OK\s*$`)
	countsLineRe = regexp.MustCompile(`(?i)failures:\s*(\d+)\s*;\s*errors:\s*(\d+)`)
)

func parseReport(output string) (failures, errs int, ok bool) {
	if m := failedLineRe.FindStringSubmatch(output); m != nil {
		errs, _ = strconv.Atoi(m[1])
		failures, _ = strconv.Atoi(m[2])
		// The line said FAILED; trust the word over counts that parsed to
		// nothing.
		if failures == 0 && errs == 0 {
			failures = 1
		}
		return failures, errs, true
	}
	if okLineRe.MatchString(output) {
		return 0, 0, true
	}
	if m := countsLineRe.FindStringSubmatch(output); m != nil {
		failures, _ = strconv.Atoi(m[1])
		errs, _ = strconv.Atoi(m[2])
		return failures, errs, true
	}
	return 0, 0, false
}
