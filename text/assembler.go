package text

import (
	"math"
	"strings"
	"unicode"

	"github.com/vellumdoc/pdf/content"
	"github.com/vellumdoc/pdf/model"
)

// AssembleOptions tunes the §4.10 layout heuristics.
type AssembleOptions struct {
	// VerticalJumpThreshold is the minimum baseline delta, in points,
	// before a newline is synthesized between two spans.
	VerticalJumpThreshold float64
	// HorizontalGapRatio and ColumnGapRatio scale with the current
	// font size to decide whether a horizontal gap is a word break
	// (ratio .. ColumnGapRatio) or a column boundary (>= ColumnGapRatio,
	// which inserts nothing).
	HorizontalGapRatio float64
	ColumnGapRatio     float64
	// JoinHyphens enables the hyphenation-aware rejoining post-pass.
	JoinHyphens bool
}

func DefaultAssembleOptions() AssembleOptions {
	return AssembleOptions{
		VerticalJumpThreshold: 2,
		HorizontalGapRatio:    0.25,
		ColumnGapRatio:        5,
		JoinHyphens:           true,
	}
}

// AssembleUntagged concatenates spans in page-content order, inserting
// newlines and spaces by position per §4.10's untagged-document mode.
// Spans are assumed already in content-stream execution order.
func AssembleUntagged(spans []content.TextSpan, opts AssembleOptions) string {
	if len(spans) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(spans[0].Text)
	prev := spans[0]
	for _, s := range spans[1:] {
		fontSize := prev.FontSize
		if fontSize <= 0 {
			fontSize = s.FontSize
		}

		dy := math.Abs(s.Y0 - prev.Y1)
		if dy > opts.VerticalJumpThreshold && fontSize > 0 {
			n := int(math.Round(dy / (1.2 * fontSize)))
			if n < 1 {
				n = 1
			}
			if n > 3 {
				n = 3
			}
			b.WriteString(strings.Repeat("\n", n))
		} else {
			gap := s.X0 - prev.X1
			if fontSize > 0 && gap > opts.HorizontalGapRatio*fontSize && gap < opts.ColumnGapRatio*fontSize {
				b.WriteString(" ")
			}
		}
		b.WriteString(s.Text)
		prev = s
	}
	out := b.String()
	if opts.JoinHyphens {
		out = JoinHyphenatedWords(out)
	}
	return out
}

// AssembleTagged groups spans by the MCIDs a structure tree exposes for
// pageRef, concatenating in structure-tree preorder. Spans whose MCID
// never appears in the tree (including those with MCID == -1) are
// appended at the end, and reportMissing, when non-nil, is called once
// with their count.
func AssembleTagged(spans []content.TextSpan, tree *Tree, pageRef model.Reference, reportMissing func(int), opts AssembleOptions) string {
	byMCID := make(map[int][]content.TextSpan, len(spans))
	for _, s := range spans {
		byMCID[s.MCID] = append(byMCID[s.MCID], s)
	}

	order := tree.MCIDOrder(pageRef)
	var b strings.Builder
	used := make(map[int]bool, len(order))
	first := true
	for _, mcid := range order {
		group, ok := byMCID[mcid]
		if !ok || used[mcid] {
			continue
		}
		used[mcid] = true
		if !first {
			b.WriteString("\n")
		}
		first = false
		b.WriteString(AssembleUntagged(group, opts))
	}

	var missing []content.TextSpan
	for mcid, group := range byMCID {
		if mcid == -1 || !used[mcid] {
			missing = append(missing, group...)
		}
	}
	if len(missing) > 0 {
		if reportMissing != nil {
			reportMissing(len(missing))
		}
		if !first {
			b.WriteString("\n")
		}
		b.WriteString(AssembleUntagged(missing, opts))
	}

	out := b.String()
	if opts.JoinHyphens {
		out = JoinHyphenatedWords(out)
	}
	return out
}

const softHyphen = '­'

// compoundPrefixes lists first-parts that conventionally keep their
// hyphen even when followed by a lowercase continuation ("non-linear",
// "re-enter").
var compoundPrefixes = map[string]bool{
	"self": true, "non": true, "anti": true, "pre": true, "post": true,
	"re": true, "co": true, "ex": true, "multi": true, "semi": true,
	"sub": true, "super": true, "ultra": true, "under": true, "over": true,
	"cross": true, "inter": true, "intra": true, "counter": true, "mid": true,
	"well": true, "ill": true, "all": true, "half": true, "high": true,
	"low": true, "full": true, "part": true, "short": true, "long": true,
	"hard": true, "soft": true,
}

// commonWords are frequently line-split multisyllabic words: when the
// joined form lands in this list, the hyphen is dropped even if both
// halves are lowercase.
var commonWords = map[string]bool{
	"government": true, "department": true, "information": true,
	"administration": true, "documentation": true, "implementation": true,
	"communication": true, "organization": true, "representation": true,
	"transportation": true, "investigation": true, "determination": true,
	"consideration": true, "recommendation": true, "responsibility": true,
	"understanding": true, "international": true, "environmental": true,
	"constitutional": true, "congressional": true, "agricultural": true,
	"professional": true, "manufacturing": true, "requirements": true,
	"development": true, "management": true, "performance": true,
	"maintenance": true, "compliance": true, "procedures": true,
	"regulations": true, "activities": true, "operations": true,
	"provisions": true, "conditions": true, "limitations": true,
	"applications": true, "publications": true,
}

// JoinHyphenatedWords rejoins words split across line breaks by a
// trailing hyphen, per §4.10. Soft hyphens always join (and are
// dropped); hard hyphens join unless the split looks like an
// intentional compound word.
func JoinHyphenatedWords(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	out := make([]string, 0, len(lines))
	i := 0
	for i < len(lines) {
		if i+1 < len(lines) {
			joined, consumed := joinLinePair(lines[i], lines[i+1])
			out = append(out, joined)
			if consumed {
				i += 2
				continue
			}
		} else {
			out = append(out, lines[i])
		}
		i++
	}
	return strings.Join(out, "\n")
}

func joinLinePair(cur, next string) (string, bool) {
	trimmedCur := strings.TrimRight(cur, " \t")
	isSoft, ok := endsWithHyphen(trimmedCur)
	if !ok {
		return cur, false
	}

	trimmedNext := strings.TrimLeft(next, " \t")
	nextWord := firstWord(trimmedNext)
	if len([]rune(nextWord)) < 2 {
		return cur, false
	}

	hyphenLen := 1
	if isSoft {
		hyphenLen = len(string(rune(softHyphen)))
	}
	withoutHyphen := trimmedCur[:len(trimmedCur)-hyphenLen]
	lastWord := lastWord(withoutHyphen)

	if !isSoft && isCompoundWord(lastWord, nextWord) {
		return cur, false
	}

	prefix := withoutHyphen[:len(withoutHyphen)-len(lastWord)]
	joinedWord := lastWord + nextWord
	restOfNext := strings.TrimLeft(trimmedNext[len(nextWord):], " \t")

	var result strings.Builder
	if strings.TrimRight(prefix, " \t") != "" {
		result.WriteString(strings.TrimRight(prefix, " \t"))
		result.WriteString(" ")
	}
	result.WriteString(joinedWord)
	if restOfNext != "" {
		result.WriteString(" ")
		result.WriteString(restOfNext)
	}
	return result.String(), true
}

func endsWithHyphen(trimmed string) (isSoft bool, ok bool) {
	if trimmed == "" {
		return false, false
	}
	r := []rune(trimmed)
	last := r[len(r)-1]
	if last == softHyphen {
		return true, len(r) >= 2 && unicode.IsLetter(r[len(r)-2])
	}
	if last == '-' {
		return false, len(r) >= 2 && unicode.IsLetter(r[len(r)-2])
	}
	return false, false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[len(fields)-1]
}

func isCompoundWord(firstPart, secondPart string) bool {
	firstLower := strings.ToLower(firstPart)
	if compoundPrefixes[firstLower] {
		return true
	}

	firstRunes := []rune(firstPart)
	secondRunes := []rune(secondPart)
	if len(firstRunes) > 0 && len(secondRunes) > 0 &&
		unicode.IsLower(firstRunes[len(firstRunes)-1]) && unicode.IsLower(secondRunes[0]) {
		combined := strings.ToLower(firstPart + secondPart)
		if commonWords[combined] {
			return false
		}
		return true
	}
	return false
}
