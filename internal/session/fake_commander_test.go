package session

import (
	"context"
	"sync"

	"atvremote/internal/opack"
)

// fakeCommander is a test double for the commander interface. It
// records every SendCommand/SendEvent/SubscribeEvent call in order and
// lets a test script canned responses per identifier.
type fakeCommander struct {
	mu sync.Mutex

	commandCalls []fakeCall
	eventCalls   []fakeCall
	subscribed   []string

	responses map[string]interface{}
	errors    map[string]error
}

type fakeCall struct {
	identifier string
	content    interface{}
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{
		responses: make(map[string]interface{}),
		errors:    make(map[string]error),
	}
}

func (f *fakeCommander) SendCommand(ctx context.Context, identifier string, content interface{}) (interface{}, error) {
	f.mu.Lock()
	f.commandCalls = append(f.commandCalls, fakeCall{identifier, content})
	err := f.errors[identifier]
	resp, ok := f.responses[identifier]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return opack.NewMap(), nil
	}
	return resp, nil
}

func (f *fakeCommander) SendEvent(identifier string, content interface{}) error {
	f.mu.Lock()
	f.eventCalls = append(f.eventCalls, fakeCall{identifier, content})
	err := f.errors[identifier]
	f.mu.Unlock()
	return err
}

func (f *fakeCommander) SubscribeEvent(name string) error {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, name)
	f.mu.Unlock()
	return nil
}

func (f *fakeCommander) commandIdentifiers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commandCalls))
	for i, c := range f.commandCalls {
		out[i] = c.identifier
	}
	return out
}
