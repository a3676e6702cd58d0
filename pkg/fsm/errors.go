package fsm

// TransitionNotAllowed is returned when attempting a transition that was not declared
type TransitionNotAllowed struct {
	Msg string
}

func (e TransitionNotAllowed) Error() string {
	return e.Msg
}
