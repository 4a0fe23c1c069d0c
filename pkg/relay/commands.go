package relay

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CommandHandler executes one internal command in-process.
type CommandHandler interface {
	Handle(ctx context.Context, rec *Record) error
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc func(ctx context.Context, rec *Record) error

func (f CommandHandlerFunc) Handle(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

// CommandMiddleware wraps the handler registered for commandType.
type CommandMiddleware func(commandType string, next CommandHandler) CommandHandler

// CommandRegistry maps command types to handlers.
type CommandRegistry struct {
	mu       sync.RWMutex
	handlers map[string]CommandHandler
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{handlers: make(map[string]CommandHandler)}
}

// Register binds handler to commandType. A type can be registered once.
func (r *CommandRegistry) Register(commandType string, handler CommandHandler) error {
	if commandType == "" {
		return fmt.Errorf("%w: command type is required", ErrInvalidArgument)
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for command %s", ErrInvalidArgument, commandType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[commandType]; exists {
		return fmt.Errorf("%w: handler for command %s already registered", ErrInvalidArgument, commandType)
	}
	r.handlers[commandType] = handler
	return nil
}

// Handle runs the handler registered for rec.Type.
func (r *CommandRegistry) Handle(ctx context.Context, rec *Record) error {
	r.mu.RLock()
	handler, ok := r.handlers[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommandType, rec.Type)
	}
	return handler.Handle(ctx, rec)
}

// Types returns the registered command types in order.
func (r *CommandRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CommandSink delivers command records to their in-process handlers.
type CommandSink struct {
	registry *CommandRegistry
}

func NewCommandSink(registry *CommandRegistry) *CommandSink {
	return &CommandSink{registry: registry}
}

func (s *CommandSink) Deliver(ctx context.Context, rec *Record) error {
	return s.registry.Handle(ctx, rec)
}
