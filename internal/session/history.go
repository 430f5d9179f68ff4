package session

import "github.com/roach88/sketchbook/internal/event"

// DefaultHistoryLimit is the number of undoable steps kept by default.
const DefaultHistoryLimit = 256

// Step is one undoable change: the event that was applied and the event
// that restores the state before it.
type Step struct {
	Forward event.Event
	Reverse event.Event
}

// History is a bounded undo/redo stack of Steps.
//
// Recording a new step discards the redo stack. Once the undo stack is
// full, the oldest step is dropped. History is not safe for concurrent
// use; the Controller serializes access.
type History struct {
	limit int
	undo  []Step
	redo  []Step
}

// NewHistory creates a history keeping at most limit undo steps.
// A limit <= 0 disables history entirely.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Record pushes a step produced by a fresh edit and clears the redo stack.
func (h *History) Record(s Step) {
	h.redo = h.redo[:0]
	h.pushUndo(s)
}

// Clear drops every undo and redo step.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// UndoLen returns the number of steps that can be undone.
func (h *History) UndoLen() int { return len(h.undo) }

// RedoLen returns the number of steps that can be redone.
func (h *History) RedoLen() int { return len(h.redo) }

func (h *History) pushUndo(s Step) {
	if h.limit <= 0 {
		return
	}
	if len(h.undo) == h.limit {
		copy(h.undo, h.undo[1:])
		h.undo = h.undo[:len(h.undo)-1]
	}
	h.undo = append(h.undo, s)
}

func (h *History) pushRedo(s Step) {
	h.redo = append(h.redo, s)
}

func (h *History) popUndo() (Step, bool) {
	return pop(&h.undo)
}

func (h *History) popRedo() (Step, bool) {
	return pop(&h.redo)
}

func pop(stack *[]Step) (Step, bool) {
	n := len(*stack)
	if n == 0 {
		return Step{}, false
	}
	s := (*stack)[n-1]
	(*stack)[n-1] = Step{}
	*stack = (*stack)[:n-1]
	return s, true
}
