package quiz

type keyCombo struct {
	key  string
	ctrl bool
}

var keyBindings = map[keyCombo]Action{
	{key: "ArrowRight"}:        ActionNext,
	{key: "ArrowLeft"}:         ActionPrev,
	{key: "Enter", ctrl: true}: ActionSubmit,
}

// KeyAction maps a key press to its action.
func KeyAction(key string, ctrl bool) (Action, bool) {
	action, ok := keyBindings[keyCombo{key: key, ctrl: ctrl}]
	return action, ok
}
