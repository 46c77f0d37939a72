package diff

import "strings"

// MergeResult is the outcome of a three-way content merge. Text is always
// usable: on a dirty merge it carries conflict markers.
type MergeResult struct {
	// Text is the merged content.
	Text string
	// CleanMerge is false when any region required conflict markers.
	CleanMerge bool
}

// tokenize splits text into lines that keep their trailing newline, plus a
// final partial line when the text does not end with one.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var toks []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			toks = append(toks, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		toks = append(toks, text[start:])
	}
	return toks
}

// matchPairs returns the LCS alignment of a and b as parallel index pairs,
// monotonically increasing on both sides.
func matchPairs(a, b []string) [][2]int {
	ops := lcs(a, b)
	var pairs [][2]int
	i, j := 0, 0
	for _, op := range ops {
		switch op.Kind {
		case Equal:
			pairs = append(pairs, [2]int{i, j})
			i++
			j++
		case Del:
			i++
		case Add:
			j++
		}
	}
	return pairs
}

// Merge3 performs a diff3 merge of ours and theirs against base. Stable
// regions are those where base agrees with both sides; each divergent region
// is resolved by the usual precedence (theirs wins when ours kept base, ours
// wins when theirs kept base or both sides agree) and otherwise materialised
// as a conflict block labelled with headLabel and targetLabel.
func Merge3(base, ours, theirs, headLabel, targetLabel string) *MergeResult {
	bt := tokenize(base)
	ot := tokenize(ours)
	tt := tokenize(theirs)

	bo := matchPairs(bt, ot)
	bth := matchPairs(bt, tt)

	// Anchor on base tokens matched in both alignments.
	oursAt := make(map[int]int, len(bo))
	for _, p := range bo {
		oursAt[p[0]] = p[1]
	}
	theirsAt := make(map[int]int, len(bth))
	for _, p := range bth {
		theirsAt[p[0]] = p[1]
	}

	var out strings.Builder
	clean := true

	// emitRegion resolves one divergent region.
	emitRegion := func(baseR, oursR, theirsR string) {
		switch {
		case oursR == baseR:
			out.WriteString(theirsR)
		case theirsR == baseR:
			out.WriteString(oursR)
		case oursR == theirsR:
			out.WriteString(oursR)
		default:
			clean = false
			out.WriteString("<<<<<<< " + headLabel + "\n")
			out.WriteString(ensureNewline(oursR))
			out.WriteString("=======\n")
			out.WriteString(ensureNewline(theirsR))
			out.WriteString(">>>>>>> " + targetLabel + "\n")
		}
	}

	bi, oi, ti := 0, 0, 0
	for b := 0; b <= len(bt); b++ {
		oj, okO := oursAt[b]
		tj, okT := theirsAt[b]
		atEnd := b == len(bt)
		if !atEnd && (!okO || !okT) {
			continue
		}
		if atEnd {
			oj, tj = len(ot), len(tt)
		}
		if b > bi || oj > oi || tj > ti {
			emitRegion(
				strings.Join(bt[bi:b], ""),
				strings.Join(ot[oi:oj], ""),
				strings.Join(tt[ti:tj], ""),
			)
		}
		if !atEnd {
			// The anchor token itself is identical on all three sides.
			out.WriteString(bt[b])
			bi, oi, ti = b+1, oj+1, tj+1
		}
	}

	return &MergeResult{Text: out.String(), CleanMerge: clean}
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
