package engine

// Level classifies log events fanned out to the observer.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Observer receives progress and log events. Both methods are invoked
// synchronously from the goroutine running the pipeline; a frontend with
// its own event loop wraps this interface and forwards.
type Observer interface {
	Progress(percent int, message string)
	Log(message string, level Level)
}

// NopObserver discards all events. Passing no observer is valid.
type NopObserver struct{}

func (NopObserver) Progress(int, string) {}
func (NopObserver) Log(string, Level)    {}

func (e *Engine) progress(percent int, message string) {
	e.obs.Progress(percent, message)
}

func (e *Engine) event(message string, level Level) {
	e.obs.Log(message, level)
	if e.log == nil {
		return
	}
	switch level {
	case LevelWarning:
		e.log.Warn(message)
	case LevelError:
		e.log.Error(message)
	default:
		e.log.Info(message)
	}
}
