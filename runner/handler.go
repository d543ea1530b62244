package runner

// Handler receives the results of a run.
type Handler interface {
	HandleFile(f FileResult) error
	Summary(result *Result) error
}

// MultiHandler dispatches to several handlers in order, stopping at the first
// error.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler creates a MultiHandler.
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// HandleFile implements Handler.
func (m *MultiHandler) HandleFile(f FileResult) error {
	for _, h := range m.handlers {
		if err := h.HandleFile(f); err != nil {
			return err
		}
	}

	return nil
}

// Summary implements Handler.
func (m *MultiHandler) Summary(result *Result) error {
	for _, h := range m.handlers {
		if err := h.Summary(result); err != nil {
			return err
		}
	}

	return nil
}
