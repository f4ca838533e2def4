package sge

// Notifier is the toast sink the shell pushes user-facing messages
// into. The core calls it but does not own its rendering.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// NotifierFunc adapts a single function to the Notifier interface,
// receiving the severity as its first argument.
type NotifierFunc func(level, message string)

func (f NotifierFunc) Success(message string) { f.call("success", message) }
func (f NotifierFunc) Error(message string)   { f.call("error", message) }
func (f NotifierFunc) Info(message string)    { f.call("info", message) }

func (f NotifierFunc) call(level, message string) {
	if f != nil {
		f(level, message)
	}
}

type noopNotifier struct{}

func (noopNotifier) Success(string) {}
func (noopNotifier) Error(string)   {}
func (noopNotifier) Info(string)    {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
