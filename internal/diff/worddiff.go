package diff

// isSeparator reports whether b is ASCII whitespace or ASCII punctuation.
func isSeparator(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return (b >= '!' && b <= '/') ||
		(b >= ':' && b <= '@') ||
		(b >= '[' && b <= '`') ||
		(b >= '{' && b <= '~')
}

// tokenize splits s so that every separator byte is its own token and runs of
// other bytes form one token.
// Example: "foo.bar(x)" -> ["foo", ".", "bar", "(", "x", ")"]
func tokenize(s string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(s); i++ {
		if !isSeparator(s[i]) {
			continue
		}
		if start < i {
			tokens = append(tokens, s[start:i])
		}
		tokens = append(tokens, s[i:i+1])
		start = i + 1
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// lcsTable returns the longest-common-subsequence DP table for a and b.
func lcsTable(a, b []string) [][]int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}
	return dp
}

// WordDiff highlights the tokens that differ between a deleted line and the
// addition paired with it. Ties during backtracking favor marking the deleted
// side. Segments for each side concatenate back to the input exactly.
func WordDiff(deleted, added string) (del, add []WordSegment) {
	delTokens := tokenize(deleted)
	addTokens := tokenize(added)
	dp := lcsTable(delTokens, addTokens)

	delMarked := make([]bool, len(delTokens))
	addMarked := make([]bool, len(addTokens))

	i, j := len(delTokens), len(addTokens)
	for i > 0 && j > 0 {
		switch {
		case delTokens[i-1] == addTokens[j-1]:
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			delMarked[i-1] = true
			i--
		default:
			addMarked[j-1] = true
			j--
		}
	}
	for ; i > 0; i-- {
		delMarked[i-1] = true
	}
	for ; j > 0; j-- {
		addMarked[j-1] = true
	}

	return coalesce(delTokens, delMarked), coalesce(addTokens, addMarked)
}

// coalesce joins adjacent tokens sharing a highlight state.
func coalesce(tokens []string, marked []bool) []WordSegment {
	var segments []WordSegment
	for idx, tok := range tokens {
		if n := len(segments); n > 0 && segments[n-1].Highlighted == marked[idx] {
			segments[n-1].Text += tok
			continue
		}
		segments = append(segments, WordSegment{Text: tok, Highlighted: marked[idx]})
	}
	return segments
}

// ApplyWordDiff fills Line.WordDiff in place. Within each hunk, a run of
// deletions immediately followed by a run of additions is paired line by line
// for the first min(deletions, additions) lines. Surplus lines stay unset.
func ApplyWordDiff(files []FileDiff) {
	for f := range files {
		for h := range files[f].Hunks {
			applyHunkWordDiff(&files[f].Hunks[h])
		}
	}
}

func applyHunkWordDiff(h *Hunk) {
	lines := h.Lines
	i := 0
	for i < len(lines) {
		if lines[i].Kind != LineDeletion {
			i++
			continue
		}
		delStart := i
		for i < len(lines) && lines[i].Kind == LineDeletion {
			i++
		}
		addStart := i
		for i < len(lines) && lines[i].Kind == LineAddition {
			i++
		}
		pairs := min(addStart-delStart, i-addStart)
		for p := 0; p < pairs; p++ {
			del, add := WordDiff(lines[delStart+p].Content, lines[addStart+p].Content)
			lines[delStart+p].WordDiff = del
			lines[addStart+p].WordDiff = add
		}
	}
}
