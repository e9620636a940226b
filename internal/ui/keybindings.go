package ui

// Action is what a key does while the video list has focus.
type Action string

const (
	ActionNone     Action = ""
	ActionDown     Action = "down"
	ActionUp       Action = "up"
	ActionPageDown Action = "page_down"
	ActionPageUp   Action = "page_up"
	ActionTop      Action = "top"
	ActionBottom   Action = "bottom"
	ActionOpen     Action = "open"
	ActionCopy     Action = "copy"
	ActionChannel  Action = "channel"
	ActionSearch   Action = "search"
	ActionRetry    Action = "retry"
	ActionQuit     Action = "quit"
	ActionPendingG Action = "pending_g" // waiting for the second g of gg
)

// ListKeyBindings maps keys to actions for the video list.
var ListKeyBindings = map[string]Action{
	"j":      ActionDown,
	"down":   ActionDown,
	"ctrl+n": ActionDown,
	"k":      ActionUp,
	"up":     ActionUp,
	"ctrl+p": ActionUp,
	"ctrl+d": ActionPageDown,
	"pgdown": ActionPageDown,
	"ctrl+u": ActionPageUp,
	"pgup":   ActionPageUp,
	"g":      ActionPendingG,
	"home":   ActionTop,
	"G":      ActionBottom,
	"end":    ActionBottom,
	"enter":  ActionOpen,
	"o":      ActionOpen,
	"y":      ActionCopy,
	"c":      ActionChannel,
	"/":      ActionSearch,
	"tab":    ActionSearch,
	"r":      ActionRetry,
	"q":      ActionQuit,
	"ctrl+c": ActionQuit,
}

// SearchAction is what a key does while the search box has focus.
type SearchAction string

const (
	SearchActionNone   SearchAction = ""
	SearchActionNext   SearchAction = "next"
	SearchActionPrev   SearchAction = "prev"
	SearchActionSubmit SearchAction = "submit"
	SearchActionClear  SearchAction = "clear"
	SearchActionLeave  SearchAction = "leave"
	SearchActionQuit   SearchAction = "quit"
)

// SearchKeyBindings maps keys to actions for the search box. Anything not
// listed is passed to the text input.
var SearchKeyBindings = map[string]SearchAction{
	"down":   SearchActionNext,
	"ctrl+n": SearchActionNext,
	"up":     SearchActionPrev,
	"ctrl+p": SearchActionPrev,
	"enter":  SearchActionSubmit,
	"ctrl+u": SearchActionClear,
	"esc":    SearchActionLeave,
	"tab":    SearchActionLeave,
	"ctrl+c": SearchActionQuit,
}

// pickKeys select a suggestion row directly, alt+1 being the first.
var pickKeys = map[string]int{
	"alt+1": 0, "alt+2": 1, "alt+3": 2, "alt+4": 3, "alt+5": 4,
	"alt+6": 5, "alt+7": 6, "alt+8": 7, "alt+9": 8,
}

// listAction resolves keyStr, tracking the gg sequence in m.pendingKey.
func (m *Model) listAction(keyStr string) Action {
	if m.pendingKey == "g" {
		m.pendingKey = ""
		if keyStr == "g" {
			return ActionTop
		}
	}
	action, ok := ListKeyBindings[keyStr]
	if !ok {
		return ActionNone
	}
	if action == ActionPendingG {
		m.pendingKey = "g"
		return ActionNone
	}
	return action
}

// keyHints is the footer help for each focus.
var keyHints = map[focus]string{
	focusList:   "j/k move • enter open • y copy • c channel • / search • r retry • q quit",
	focusSearch: "↑/↓ suggestions • enter search • ctrl+u clear • esc back",
}
