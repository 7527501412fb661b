package rewind

import (
	"context"

	"github.com/kode4food/caravan"
)

// Engine owns the configuration, change hub, and optional save worker
// pool shared by the Stacks created from it
type Engine struct {
	config Config
	hub    *ChangeHub
	worker *saveWorker
	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates a new Engine instance with the given configuration
func NewEngine(cfg Config) (*Engine, error) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := newChangeHub(caravan.NewTopic[*Change]())

	e := &Engine{
		config: cfg,
		hub:    hub,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableSaveWorker {
		e.worker = newSaveWorker(cfg.Save)
	}
	return e, nil
}

// NewStack creates a Stack bound to the given identifier. The Stack
// starts in a group of its own
func (e *Engine) NewStack(id StackID) *Stack {
	s := &Stack{
		engine:  e,
		id:      id,
		reg:     newRegistry(),
		emitter: e.hub.newEmitter(),
	}
	s.grp = newGroup(s)
	return s
}

// Hub returns the ChangeHub shared by the Engine's Stacks
func (e *Engine) Hub() *ChangeHub {
	return e.hub
}

// Context returns the Engine's context for cancellation
func (e *Engine) Context() context.Context {
	return e.ctx
}

// Close gracefully shuts down the Engine
func (e *Engine) Close() error {
	if e.worker != nil {
		e.worker.Stop()
	}
	e.cancel()
	return nil
}
