package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Motion identifies a cursor movement resolved against the buffer
// text. The RPC layer's many move_* methods all reduce to a motion
// plus an extend-selection flag.
type Motion int

// The motions the editing protocol can request.
const (
	MotionLeft Motion = iota
	MotionRight
	MotionUp
	MotionDown
	MotionWordLeft
	MotionWordRight
	MotionLineStart
	MotionLineEnd
	MotionParagraphStart
	MotionParagraphEnd
	MotionDocStart
	MotionDocEnd
	MotionPageUp
	MotionPageDown
)

// defaultPageLines is used before the client reports a scroll window.
const defaultPageLines = 24

// View is one presentation of a buffer: a cursor, a selection anchor
// and the client's reported scroll window. Views are owned by the
// buffer's serializer.
type View struct {
	ID     ViewID
	Buffer BufferID

	cursor int
	anchor int

	firstLine, lastLine int

	findQuery string
	findCase  bool
}

// NewView binds a fresh view to a buffer.
func NewView(id ViewID, buffer BufferID) *View {
	return &View{ID: id, Buffer: buffer, lastLine: defaultPageLines}
}

// Selection returns the selected range in ascending order. An empty
// selection is a caret: start == end == cursor.
func (v *View) Selection() (start, end int) {
	if v.anchor <= v.cursor {
		return v.anchor, v.cursor
	}
	return v.cursor, v.anchor
}

// Caret returns the cursor offset.
func (v *View) Caret() int { return v.cursor }

// SetCaret collapses the selection to off.
func (v *View) SetCaret(off int) {
	v.cursor = off
	v.anchor = off
}

// AdjustForEdit keeps the cursor in place across an edit applied at
// the given offsets: text inserted before the cursor shifts it right,
// deletions before it shift it left. afterCursor marks an insertion
// at the cursor itself as logically right of it.
func (v *View) AdjustForEdit(mapCoord func(pos int, after bool) int, afterCursor bool) {
	v.cursor = mapCoord(v.cursor, !afterCursor)
	v.anchor = mapCoord(v.anchor, !afterCursor)
}

// SetScrollWindow records the client's visible line range.
func (v *View) SetScrollWindow(first, last int) {
	v.firstLine = first
	v.lastLine = last
}

func (v *View) pageLines() int {
	if v.lastLine > v.firstLine {
		return v.lastLine - v.firstLine
	}
	return defaultPageLines
}

// Move applies a motion. When extend is false the selection collapses
// to the new cursor position; when true the anchor stays put.
func (v *View) Move(text string, m Motion, extend bool) {
	v.cursor = resolveMotion(text, v.cursor, m, v.pageLines())
	if !extend {
		v.anchor = v.cursor
	}
}

// SelectAll selects the whole buffer.
func (v *View) SelectAll(text string) {
	v.anchor = 0
	v.cursor = len(text)
}

// DeletionTarget resolves what a delete command removes: the
// selection when one exists, otherwise the range between the cursor
// and the motion's landing point.
func (v *View) DeletionTarget(text string, m Motion) (start, end int) {
	if s, e := v.Selection(); s != e {
		return s, e
	}
	dst := resolveMotion(text, v.cursor, m, v.pageLines())
	if dst < v.cursor {
		return dst, v.cursor
	}
	return v.cursor, dst
}

// LineCol converts a byte offset into a zero-based line and column.
func LineCol(text string, off int) (line, col int) {
	if off > len(text) {
		off = len(text)
	}
	line = strings.Count(text[:off], "\n")
	return line, off - lineStart(text, off)
}

// MoveTo places the cursor at a line/column position, as for click
// and goto_line. Columns past the end of a line clamp to line end.
func (v *View) MoveTo(text string, line, col int, extend bool) {
	v.cursor = offsetOf(text, line, col)
	if !extend {
		v.anchor = v.cursor
	}
}

// ToggleGesture toggles selection to the given position, the one
// gesture type the protocol defines.
func (v *View) ToggleGesture(text string, line, col int) {
	off := offsetOf(text, line, col)
	if start, end := v.Selection(); off >= start && off < end {
		v.SetCaret(off)
		return
	}
	v.cursor = off
}

// SetFind records the active search. An empty query keeps the
// previous one, mirroring find{chars?}.
func (v *View) SetFind(query string, caseSensitive bool) string {
	if query != "" {
		v.findQuery = query
	}
	v.findCase = caseSensitive
	return v.findQuery
}

// FindNext selects the next occurrence of the active query after the
// selection, wrapping when asked. allowSame permits matching the
// current selection in place. It reports whether a match was found.
func (v *View) FindNext(text string, wrapAround, allowSame bool) bool {
	if v.findQuery == "" {
		return false
	}
	haystack, needle := foldCase(text, v.findQuery, v.findCase)
	from := v.cursor
	if start, end := v.Selection(); allowSame && end > start {
		from = start
	}
	idx := strings.Index(haystack[from:], needle)
	if idx >= 0 {
		idx += from
	} else if wrapAround {
		idx = strings.Index(haystack, needle)
	}
	if idx < 0 {
		return false
	}
	v.anchor = idx
	v.cursor = idx + len(v.findQuery)
	return true
}

// FindPrevious selects the previous occurrence of the active query
// before the selection.
func (v *View) FindPrevious(text string, wrapAround bool) bool {
	if v.findQuery == "" {
		return false
	}
	haystack, needle := foldCase(text, v.findQuery, v.findCase)
	start, _ := v.Selection()
	idx := strings.LastIndex(haystack[:start], needle)
	if idx < 0 && wrapAround {
		idx = strings.LastIndex(haystack, needle)
	}
	if idx < 0 {
		return false
	}
	v.anchor = idx
	v.cursor = idx + len(v.findQuery)
	return true
}

func foldCase(text, query string, caseSensitive bool) (string, string) {
	if caseSensitive {
		return text, query
	}
	return strings.ToLower(text), strings.ToLower(query)
}

// resolveMotion computes the new cursor offset for a motion.
func resolveMotion(text string, cur int, m Motion, page int) int {
	switch m {
	case MotionLeft:
		return prevRuneStart(text, cur)
	case MotionRight:
		return nextRuneEnd(text, cur)
	case MotionUp:
		return verticalMove(text, cur, -1)
	case MotionDown:
		return verticalMove(text, cur, 1)
	case MotionPageUp:
		return verticalMove(text, cur, -page)
	case MotionPageDown:
		return verticalMove(text, cur, page)
	case MotionWordLeft:
		return prevWordStart(text, cur)
	case MotionWordRight:
		return nextWordEnd(text, cur)
	case MotionLineStart:
		return lineStart(text, cur)
	case MotionLineEnd:
		return lineEnd(text, cur)
	case MotionParagraphStart:
		return paragraphStart(text, cur)
	case MotionParagraphEnd:
		return paragraphEnd(text, cur)
	case MotionDocStart:
		return 0
	case MotionDocEnd:
		return len(text)
	default:
		return cur
	}
}

func prevRuneStart(text string, off int) int {
	if off <= 0 {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(text[:off])
	return off - size
}

func nextRuneEnd(text string, off int) int {
	if off >= len(text) {
		return len(text)
	}
	_, size := utf8.DecodeRuneInString(text[off:])
	return off + size
}

func lineStart(text string, off int) int {
	return strings.LastIndexByte(text[:off], '\n') + 1
}

func lineEnd(text string, off int) int {
	if idx := strings.IndexByte(text[off:], '\n'); idx >= 0 {
		return off + idx
	}
	return len(text)
}

func verticalMove(text string, off, lines int) int {
	col := off - lineStart(text, off)
	cur := off
	switch {
	case lines < 0:
		for ; lines < 0; lines++ {
			start := lineStart(text, cur)
			if start == 0 {
				return min(col, lineEnd(text, 0))
			}
			cur = start - 1
		}
	default:
		for ; lines > 0; lines-- {
			end := lineEnd(text, cur)
			if end == len(text) {
				break
			}
			cur = end + 1
		}
	}
	start := lineStart(text, cur)
	return min(start+col, lineEnd(text, cur))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func prevWordStart(text string, off int) int {
	for off > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:off])
		if isWordRune(r) {
			break
		}
		off -= size
	}
	for off > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:off])
		if !isWordRune(r) {
			break
		}
		off -= size
	}
	return off
}

func nextWordEnd(text string, off int) int {
	for off < len(text) {
		r, size := utf8.DecodeRuneInString(text[off:])
		if isWordRune(r) {
			break
		}
		off += size
	}
	for off < len(text) {
		r, size := utf8.DecodeRuneInString(text[off:])
		if !isWordRune(r) {
			break
		}
		off += size
	}
	return off
}

func paragraphStart(text string, off int) int {
	for off > 0 {
		start := lineStart(text, off)
		if start >= 2 && text[start-1] == '\n' && text[start-2] == '\n' {
			return start
		}
		if start == 0 {
			return 0
		}
		off = start - 1
	}
	return 0
}

func paragraphEnd(text string, off int) int {
	for off < len(text) {
		end := lineEnd(text, off)
		if end+1 < len(text) && text[end] == '\n' && text[end+1] == '\n' {
			return end
		}
		if end == len(text) {
			return end
		}
		off = end + 1
	}
	return len(text)
}

// offsetOf converts a zero-based line/column pair to a byte offset,
// clamping out-of-range positions.
func offsetOf(text string, line, col int) int {
	start := 0
	for ; line > 0; line-- {
		idx := strings.IndexByte(text[start:], '\n')
		if idx < 0 {
			break
		}
		start += idx + 1
	}
	if col < 0 {
		col = 0
	}
	return min(start+col, lineEnd(text, start))
}
