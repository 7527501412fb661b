package rewind

type Handler func(*Change) error

func MakeDispatcher(handlers map[ChangeType]Handler) Handler {
	return func(ch *Change) error {
		if fn, ok := handlers[ch.Type]; ok {
			return fn(ch)
		}
		return nil
	}
}
