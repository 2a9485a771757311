package typeset

// BacktrackBound limits how far a tentative break position may be nudged in
// each direction to satisfy kinsoku rules. When the bound is insufficient the
// unadjusted break stands - a tolerated violation, never a crash or an empty
// sub-line.
const BacktrackBound = 2

// BreakLine splits one logical line into sub-lines of at most
// floor(maxWidth/avgCharWidth) runes, adjusting break positions to avoid
// starting a sub-line with a head-prohibited rune or ending one with a
// tail-prohibited rune. An empty input produces a single empty sub-line so
// blank lines survive pagination.
func BreakLine(text string, maxWidth, avgCharWidth float64) []string {
	if len(text) == 0 {
		return []string{""}
	}

	perLine := 1
	if avgCharWidth > 0 && maxWidth > avgCharWidth {
		perLine = int(maxWidth / avgCharWidth)
	}

	runes := []rune(text)
	out := make([]string, 0, (len(runes)+perLine-1)/perLine)

	for start := 0; start < len(runes); {
		end := start + perLine
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		end = adjustBreak(runes, start, end)
		out = append(out, string(runes[start:end]))
		start = end
	}
	return out
}

// adjustBreak moves the tentative break at most BacktrackBound runes in each
// direction looking for a position where the next sub-line does not begin
// with a head-prohibited rune and the current one does not end with a
// tail-prohibited rune. Positions are probed nearest first, extension before
// shrink, so overly long lines are preferred over orphaned punctuation.
func adjustBreak(runes []rune, start, end int) int {
	legal := func(pos int) bool {
		if pos >= len(runes) {
			return !IsTailProhibited(runes[len(runes)-1])
		}
		return !IsHeadProhibited(runes[pos]) && !IsTailProhibited(runes[pos-1])
	}

	if legal(end) {
		return end
	}
	for d := 1; d <= BacktrackBound; d++ {
		if end+d <= len(runes) && legal(end+d) {
			return end + d
		}
		if end-d > start && legal(end-d) {
			return end - d
		}
	}
	return end
}
