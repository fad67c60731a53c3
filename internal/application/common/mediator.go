package common

import (
	"context"
	"fmt"
	"reflect"
)

// Request is a command dispatched through the mediator.
type Request interface{}

// Response carries a handler's result. Business failures travel inside the
// response; the error return is for infrastructure failures only.
type Response interface{}

// RequestHandler handles one concrete request type.
type RequestHandler interface {
	Handle(ctx context.Context, request Request) (Response, error)
}

// Mediator routes each request to the handler registered for its concrete
// type. Registration happens once at composition time; Send is read-only
// afterwards and safe for concurrent use.
type Mediator struct {
	handlers map[reflect.Type]RequestHandler
}

func NewMediator() *Mediator {
	return &Mediator{
		handlers: make(map[reflect.Type]RequestHandler),
	}
}

func (m *Mediator) Register(requestType reflect.Type, handler RequestHandler) error {
	if _, exists := m.handlers[requestType]; exists {
		return fmt.Errorf("handler already registered for %s", requestType)
	}
	m.handlers[requestType] = handler
	return nil
}

func (m *Mediator) Send(ctx context.Context, request Request) (Response, error) {
	handler, ok := m.handlers[reflect.TypeOf(request)]
	if !ok {
		return nil, fmt.Errorf("no handler registered for %T", request)
	}
	return handler.Handle(ctx, request)
}

// RegisterHandler registers handler for the request type inferred from T.
func RegisterHandler[T Request](m *Mediator, handler RequestHandler) error {
	var zero T
	return m.Register(reflect.TypeOf(zero), handler)
}
