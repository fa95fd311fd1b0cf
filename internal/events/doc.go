// Package events lets services announce domain changes without knowing who
// reacts to them.
//
// An Emitter fans an Event out to every registered Handler. Handlers decide
// for themselves which event types they care about.
package events
