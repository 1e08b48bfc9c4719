package rpc

import (
	"encoding/json"
	"fmt"
)

// EditNotification is the closed set of view-scoped editing commands
// that expect no reply. One implementing type per wire method.
type EditNotification interface {
	editMethod() string
}

// EditRequest is the view-scoped editing commands that expect exactly
// one reply.
type EditRequest interface {
	editRequestMethod() string
}

// Insert inserts literal characters at each cursor.
type Insert struct {
	Chars string `json:"chars"`
}

func (*Insert) editMethod() string { return "insert" }

// The delete family.
type (
	DeleteForward          struct{}
	DeleteBackward         struct{}
	DeleteWordForward      struct{}
	DeleteWordBackward     struct{}
	DeleteToEndOfParagraph struct{}
	DeleteToBeginningOfLine struct{}
	InsertNewline          struct{}
	InsertTab              struct{}
)

func (DeleteForward) editMethod() string           { return "delete_forward" }
func (DeleteBackward) editMethod() string          { return "delete_backward" }
func (DeleteWordForward) editMethod() string       { return "delete_word_forward" }
func (DeleteWordBackward) editMethod() string      { return "delete_word_backward" }
func (DeleteToEndOfParagraph) editMethod() string  { return "delete_to_end_of_paragraph" }
func (DeleteToBeginningOfLine) editMethod() string { return "delete_to_beginning_of_line" }
func (InsertNewline) editMethod() string           { return "insert_newline" }
func (InsertTab) editMethod() string               { return "insert_tab" }

// The movement family: each motion in a plain and an
// extend-selection form.
type (
	MoveUp                                      struct{}
	MoveUpAndModifySelection                    struct{}
	MoveDown                                    struct{}
	MoveDownAndModifySelection                  struct{}
	MoveLeft                                    struct{}
	MoveBackward                                struct{} // synonym for MoveLeft
	MoveLeftAndModifySelection                  struct{}
	MoveRight                                   struct{}
	MoveForward                                 struct{} // synonym for MoveRight
	MoveRightAndModifySelection                 struct{}
	MoveWordLeft                                struct{}
	MoveWordLeftAndModifySelection              struct{}
	MoveWordRight                               struct{}
	MoveWordRightAndModifySelection             struct{}
	MoveToBeginningOfParagraph                  struct{}
	MoveToEndOfParagraph                        struct{}
	MoveToLeftEndOfLine                         struct{}
	MoveToLeftEndOfLineAndModifySelection       struct{}
	MoveToRightEndOfLine                        struct{}
	MoveToRightEndOfLineAndModifySelection      struct{}
	MoveToBeginningOfDocument                   struct{}
	MoveToBeginningOfDocumentAndModifySelection struct{}
	MoveToEndOfDocument                         struct{}
	MoveToEndOfDocumentAndModifySelection       struct{}
	ScrollPageUp                                struct{}
	PageUpAndModifySelection                    struct{}
	ScrollPageDown                              struct{}
	PageDownAndModifySelection                  struct{}
	SelectAll                                   struct{}
	AddSelectionAbove                           struct{}
	AddSelectionBelow                           struct{}
)

func (MoveUp) editMethod() string                   { return "move_up" }
func (MoveUpAndModifySelection) editMethod() string { return "move_up_and_modify_selection" }
func (MoveDown) editMethod() string                 { return "move_down" }
func (MoveDownAndModifySelection) editMethod() string {
	return "move_down_and_modify_selection"
}
func (MoveLeft) editMethod() string     { return "move_left" }
func (MoveBackward) editMethod() string { return "move_backward" }
func (MoveLeftAndModifySelection) editMethod() string {
	return "move_left_and_modify_selection"
}
func (MoveRight) editMethod() string   { return "move_right" }
func (MoveForward) editMethod() string { return "move_forward" }
func (MoveRightAndModifySelection) editMethod() string {
	return "move_right_and_modify_selection"
}
func (MoveWordLeft) editMethod() string { return "move_word_left" }
func (MoveWordLeftAndModifySelection) editMethod() string {
	return "move_word_left_and_modify_selection"
}
func (MoveWordRight) editMethod() string { return "move_word_right" }
func (MoveWordRightAndModifySelection) editMethod() string {
	return "move_word_right_and_modify_selection"
}
func (MoveToBeginningOfParagraph) editMethod() string { return "move_to_beginning_of_paragraph" }
func (MoveToEndOfParagraph) editMethod() string       { return "move_to_end_of_paragraph" }
func (MoveToLeftEndOfLine) editMethod() string        { return "move_to_left_end_of_line" }
func (MoveToLeftEndOfLineAndModifySelection) editMethod() string {
	return "move_to_left_end_of_line_and_modify_selection"
}
func (MoveToRightEndOfLine) editMethod() string { return "move_to_right_end_of_line" }
func (MoveToRightEndOfLineAndModifySelection) editMethod() string {
	return "move_to_right_end_of_line_and_modify_selection"
}
func (MoveToBeginningOfDocument) editMethod() string { return "move_to_beginning_of_document" }
func (MoveToBeginningOfDocumentAndModifySelection) editMethod() string {
	return "move_to_beginning_of_document_and_modify_selection"
}
func (MoveToEndOfDocument) editMethod() string { return "move_to_end_of_document" }
func (MoveToEndOfDocumentAndModifySelection) editMethod() string {
	return "move_to_end_of_document_and_modify_selection"
}
func (ScrollPageUp) editMethod() string             { return "scroll_page_up" }
func (PageUpAndModifySelection) editMethod() string { return "page_up_and_modify_selection" }
func (ScrollPageDown) editMethod() string           { return "scroll_page_down" }
func (PageDownAndModifySelection) editMethod() string {
	return "page_down_and_modify_selection"
}
func (SelectAll) editMethod() string         { return "select_all" }
func (AddSelectionAbove) editMethod() string { return "add_selection_above" }
func (AddSelectionBelow) editMethod() string { return "add_selection_below" }

// Scroll reports the visible line window. Positional on the wire.
type Scroll LineRange

func (*Scroll) editMethod() string { return "scroll" }

// MarshalJSON implements json.Marshaler.
func (s Scroll) MarshalJSON() ([]byte, error) { return LineRange(s).MarshalJSON() }

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scroll) UnmarshalJSON(data []byte) error { return (*LineRange)(s).UnmarshalJSON(data) }

// RequestLines asks the core to render a line window. Positional on
// the wire, like Scroll.
type RequestLines LineRange

func (*RequestLines) editMethod() string { return "request_lines" }

// MarshalJSON implements json.Marshaler.
func (r RequestLines) MarshalJSON() ([]byte, error) { return LineRange(r).MarshalJSON() }

// UnmarshalJSON implements json.Unmarshaler.
func (r *RequestLines) UnmarshalJSON(data []byte) error { return (*LineRange)(r).UnmarshalJSON(data) }

// GotoLine moves the cursor to a line.
type GotoLine struct {
	Line uint64 `json:"line"`
}

func (*GotoLine) editMethod() string { return "goto_line" }

// FindNext advances the active search.
type FindNext struct {
	WrapAround *bool `json:"wrap_around,omitempty"`
	AllowSame  *bool `json:"allow_same,omitempty"`
}

func (*FindNext) editMethod() string { return "find_next" }

// FindPrevious rewinds the active search.
type FindPrevious struct {
	WrapAround *bool `json:"wrap_around,omitempty"`
}

func (*FindPrevious) editMethod() string { return "find_previous" }

// Click places the cursor.
type Click MouseAction

func (*Click) editMethod() string { return "click" }

// Drag extends the selection toward the pointer.
type Drag MouseAction

func (*Drag) editMethod() string { return "drag" }

// Gesture applies a touch gesture at a position.
type Gesture struct {
	Line uint64      `json:"line"`
	Col  uint64      `json:"col"`
	Ty   GestureType `json:"ty"`
}

func (*Gesture) editMethod() string { return "gesture" }

// The remaining parameterless notifications.
type (
	Yank            struct{}
	Transpose       struct{}
	Undo            struct{}
	Redo            struct{}
	DebugRewrap     struct{}
	DebugPrintSpans struct{}
	CancelOperation struct{}
)

func (Yank) editMethod() string            { return "yank" }
func (Transpose) editMethod() string       { return "transpose" }
func (Undo) editMethod() string            { return "undo" }
func (Redo) editMethod() string            { return "redo" }
func (DebugRewrap) editMethod() string     { return "debug_rewrap" }
func (DebugPrintSpans) editMethod() string { return "debug_print_spans" }
func (CancelOperation) editMethod() string { return "cancel_operation" }

// Cut removes and returns the selection's contents.
type Cut struct{}

func (Cut) editRequestMethod() string { return "cut" }

// Copy returns the selection's contents.
type Copy struct{}

func (Copy) editRequestMethod() string { return "copy" }

// Find sets the search query, falling back on the current selection
// when Chars is absent.
type Find struct {
	Chars         *string `json:"chars,omitempty"`
	CaseSensitive bool    `json:"case_sensitive"`
}

func (*Find) editRequestMethod() string { return "find" }

// editNotifications maps wire methods to constructors. Parameterized
// commands construct pointers so params can decode into them.
var editNotifications = map[string]func() EditNotification{
	"insert":                      func() EditNotification { return new(Insert) },
	"delete_forward":              func() EditNotification { return DeleteForward{} },
	"delete_backward":             func() EditNotification { return DeleteBackward{} },
	"delete_word_forward":         func() EditNotification { return DeleteWordForward{} },
	"delete_word_backward":        func() EditNotification { return DeleteWordBackward{} },
	"delete_to_end_of_paragraph":  func() EditNotification { return DeleteToEndOfParagraph{} },
	"delete_to_beginning_of_line": func() EditNotification { return DeleteToBeginningOfLine{} },
	"insert_newline":              func() EditNotification { return InsertNewline{} },
	"insert_tab":                  func() EditNotification { return InsertTab{} },

	"move_up":                        func() EditNotification { return MoveUp{} },
	"move_up_and_modify_selection":   func() EditNotification { return MoveUpAndModifySelection{} },
	"move_down":                      func() EditNotification { return MoveDown{} },
	"move_down_and_modify_selection": func() EditNotification { return MoveDownAndModifySelection{} },
	"move_left":                      func() EditNotification { return MoveLeft{} },
	"move_backward":                  func() EditNotification { return MoveBackward{} },
	"move_left_and_modify_selection": func() EditNotification { return MoveLeftAndModifySelection{} },
	"move_right":                     func() EditNotification { return MoveRight{} },
	"move_forward":                   func() EditNotification { return MoveForward{} },
	"move_right_and_modify_selection": func() EditNotification {
		return MoveRightAndModifySelection{}
	},
	"move_word_left": func() EditNotification { return MoveWordLeft{} },
	"move_word_left_and_modify_selection": func() EditNotification {
		return MoveWordLeftAndModifySelection{}
	},
	"move_word_right": func() EditNotification { return MoveWordRight{} },
	"move_word_right_and_modify_selection": func() EditNotification {
		return MoveWordRightAndModifySelection{}
	},
	"move_to_beginning_of_paragraph": func() EditNotification { return MoveToBeginningOfParagraph{} },
	"move_to_end_of_paragraph":       func() EditNotification { return MoveToEndOfParagraph{} },
	"move_to_left_end_of_line":       func() EditNotification { return MoveToLeftEndOfLine{} },
	"move_to_left_end_of_line_and_modify_selection": func() EditNotification {
		return MoveToLeftEndOfLineAndModifySelection{}
	},
	"move_to_right_end_of_line": func() EditNotification { return MoveToRightEndOfLine{} },
	"move_to_right_end_of_line_and_modify_selection": func() EditNotification {
		return MoveToRightEndOfLineAndModifySelection{}
	},
	"move_to_beginning_of_document": func() EditNotification { return MoveToBeginningOfDocument{} },
	"move_to_beginning_of_document_and_modify_selection": func() EditNotification {
		return MoveToBeginningOfDocumentAndModifySelection{}
	},
	"move_to_end_of_document": func() EditNotification { return MoveToEndOfDocument{} },
	"move_to_end_of_document_and_modify_selection": func() EditNotification {
		return MoveToEndOfDocumentAndModifySelection{}
	},
	"scroll_page_up":               func() EditNotification { return ScrollPageUp{} },
	"page_up_and_modify_selection": func() EditNotification { return PageUpAndModifySelection{} },
	"scroll_page_down":             func() EditNotification { return ScrollPageDown{} },
	"page_down_and_modify_selection": func() EditNotification {
		return PageDownAndModifySelection{}
	},
	"select_all":          func() EditNotification { return SelectAll{} },
	"add_selection_above": func() EditNotification { return AddSelectionAbove{} },
	"add_selection_below": func() EditNotification { return AddSelectionBelow{} },

	"scroll":            func() EditNotification { return new(Scroll) },
	"request_lines":     func() EditNotification { return new(RequestLines) },
	"goto_line":         func() EditNotification { return new(GotoLine) },
	"find_next":         func() EditNotification { return new(FindNext) },
	"find_previous":     func() EditNotification { return new(FindPrevious) },
	"click":             func() EditNotification { return new(Click) },
	"drag":              func() EditNotification { return new(Drag) },
	"gesture":           func() EditNotification { return new(Gesture) },
	"yank":              func() EditNotification { return Yank{} },
	"transpose":         func() EditNotification { return Transpose{} },
	"undo":              func() EditNotification { return Undo{} },
	"redo":              func() EditNotification { return Redo{} },
	"debug_rewrap":      func() EditNotification { return DebugRewrap{} },
	"debug_print_spans": func() EditNotification { return DebugPrintSpans{} },
	"cancel_operation":  func() EditNotification { return CancelOperation{} },
}

var editRequests = map[string]func() EditRequest{
	"cut":  func() EditRequest { return Cut{} },
	"copy": func() EditRequest { return Copy{} },
	"find": func() EditRequest { return new(Find) },
}

func parseEditNotification(method string, params []byte) (EditNotification, error) {
	mk, ok := editNotifications[method]
	if !ok {
		return nil, fmt.Errorf("%w: edit method %q", ErrUnknownMethod, method)
	}
	cmd := mk()
	if err := decodeInto(cmd, params); err != nil {
		return nil, err
	}
	return cmd, nil
}

func parseEditRequest(method string, params []byte) (EditRequest, error) {
	mk, ok := editRequests[method]
	if !ok {
		return nil, fmt.Errorf("%w: edit request %q", ErrUnknownMethod, method)
	}
	cmd := mk()
	if err := decodeInto(cmd, params); err != nil {
		return nil, err
	}
	return cmd, nil
}

// decodeInto fills a parameterized command from raw params. Value
// (parameterless) commands skip decoding entirely.
func decodeInto(cmd any, params []byte) error {
	switch cmd.(type) {
	case *Insert, *Scroll, *RequestLines, *GotoLine, *FindNext, *FindPrevious,
		*Click, *Drag, *Gesture, *Find:
		if len(params) == 0 {
			return fmt.Errorf("%w: missing params", ErrBadParams)
		}
		if err := json.Unmarshal(params, cmd); err != nil {
			return fmt.Errorf("%w: %v", ErrBadParams, err)
		}
	}
	return nil
}
