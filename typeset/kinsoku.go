package typeset

// Kinsoku (prohibited character) tables. Membership is a map lookup indexed
// by code point so checks stay O(1) regardless of table size.

// Characters that must not start a line - closing punctuation, small kana,
// iteration marks and their ASCII counterparts.
const headProhibitedChars = `、。，．：；！？”’」』〕）】》〉〗〙〟` +
	`ー々ゝゞヽヾぁぃぅぇぉっゃゅょゎァィゥェォッャュョヮヵヶ` +
	`…‥—～%‰′″℃` +
	`,.!?;:)]}>%’”`

// Characters that must not end a line - opening punctuation.
const tailProhibitedChars = `“‘「『〔（【《〈〖〘〝` + `([{<‘“`

var (
	headProhibited = makeRuneSet(headProhibitedChars)
	tailProhibited = makeRuneSet(tailProhibitedChars)
)

func makeRuneSet(chars string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		set[r] = struct{}{}
	}
	return set
}

// IsHeadProhibited reports whether r is not allowed at the start of a line.
func IsHeadProhibited(r rune) bool {
	_, ok := headProhibited[r]
	return ok
}

// IsTailProhibited reports whether r is not allowed at the end of a line.
func IsTailProhibited(r rune) bool {
	_, ok := tailProhibited[r]
	return ok
}
