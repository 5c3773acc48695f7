package trader

import "tradejournal/internal/logger"

// HandlerRegistry manages command handlers and dispatches commands to them.
type HandlerRegistry struct {
	handlers map[CommandType]CommandHandler
}

// NewHandlerRegistry creates a new registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[CommandType]CommandHandler),
	}
}

// Register adds a handler to the registry.
// If a handler for the same command type already exists, it will be replaced.
func (r *HandlerRegistry) Register(h CommandHandler) {
	if h == nil {
		return
	}
	r.handlers[h.Type()] = h
}

// Get returns the handler for the given command type.
func (r *HandlerRegistry) Get(t CommandType) (CommandHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// RegisterDefaultHandlers registers all plan lifecycle handlers.
func (r *HandlerRegistry) RegisterDefaultHandlers() {
	r.Register(&CreatePlanHandler{})
	r.Register(&ExecutePlanHandler{})
	r.Register(&AddPositionHandler{})
	r.Register(&TrimPositionHandler{})
	r.Register(&ClosePlanHandler{})
	r.Register(&CancelPlanHandler{})
	r.Register(&DeletePlanHandler{})
	logger.Debugf("[trader] registered %d command handlers", len(r.handlers))
}
