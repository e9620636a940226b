package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListActionGGSequence(t *testing.T) {
	m := &Model{}

	assert.Equal(t, ActionNone, m.listAction("g"))
	assert.Equal(t, "g", m.pendingKey)
	assert.Equal(t, ActionTop, m.listAction("g"))
	assert.Empty(t, m.pendingKey)

	// a different key cancels the pending g and acts normally
	assert.Equal(t, ActionNone, m.listAction("g"))
	assert.Equal(t, ActionDown, m.listAction("j"))
	assert.Empty(t, m.pendingKey)
	assert.Equal(t, ActionNone, m.listAction("g"))
}

func TestListActionBindings(t *testing.T) {
	m := &Model{}
	tests := map[string]Action{
		"j":      ActionDown,
		"down":   ActionDown,
		"k":      ActionUp,
		"ctrl+d": ActionPageDown,
		"ctrl+u": ActionPageUp,
		"G":      ActionBottom,
		"enter":  ActionOpen,
		"y":      ActionCopy,
		"c":      ActionChannel,
		"/":      ActionSearch,
		"r":      ActionRetry,
		"q":      ActionQuit,
		"x":      ActionNone,
	}
	for key, want := range tests {
		assert.Equal(t, want, m.listAction(key), key)
	}
}

func TestSearchBindingsDoNotShadowTyping(t *testing.T) {
	for _, key := range []string{"j", "k", "q", "g", "/", "space"} {
		_, bound := SearchKeyBindings[key]
		assert.False(t, bound, "%q must reach the text input", key)
	}
	assert.Equal(t, SearchActionSubmit, SearchKeyBindings["enter"])
	assert.Equal(t, 0, pickKeys["alt+1"])
	assert.Equal(t, 8, pickKeys["alt+9"])
}
