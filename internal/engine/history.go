package engine

// DefaultHistoryLimit is the default number of undoable requests a Context
// keeps. Older requests are evicted and their states released.
const DefaultHistoryLimit = 100

// History is a strict LIFO undo stack plus a redo stack.
type History struct {
	undo  []Transaction
	redo  []Transaction
	limit int
}

func newHistory(limit int) *History {
	return &History{limit: limit}
}

// Limit returns the maximum undo depth; 0 means unlimited.
func (h *History) Limit() int { return h.limit }

// UndoLen returns the number of undoable requests.
func (h *History) UndoLen() int { return len(h.undo) }

// RedoLen returns the number of redoable requests.
func (h *History) RedoLen() int { return len(h.redo) }

// Undoable returns the undo stack, oldest first; the last entry is undone
// next.
func (h *History) Undoable() []Transaction {
	return append([]Transaction(nil), h.undo...)
}

// Redoable returns the redo stack; the last entry is redone next.
func (h *History) Redoable() []Transaction {
	return append([]Transaction(nil), h.redo...)
}

// push adds a committed request. It returns the requests that left the
// history: the whole redo stack, then any evicted from the bottom of the
// undo stack.
func (h *History) push(t Transaction) []Transaction {
	dropped := h.redo
	h.redo = nil
	h.undo = append(h.undo, t)
	if h.limit > 0 && len(h.undo) > h.limit {
		n := len(h.undo) - h.limit
		dropped = append(dropped, h.undo[:n]...)
		h.undo = append([]Transaction(nil), h.undo[n:]...)
	}
	return dropped
}

func (h *History) peekUndo() Transaction {
	if len(h.undo) == 0 {
		return nil
	}
	return h.undo[len(h.undo)-1]
}

func (h *History) peekRedo() Transaction {
	if len(h.redo) == 0 {
		return nil
	}
	return h.redo[len(h.redo)-1]
}

// undone moves the top of the undo stack onto the redo stack.
func (h *History) undone() {
	t := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, t)
}

// redone moves the top of the redo stack onto the undo stack.
func (h *History) redone() {
	t := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, t)
}

// clear empties both stacks and returns everything that was in them.
func (h *History) clear() []Transaction {
	all := append(h.undo, h.redo...)
	h.undo, h.redo = nil, nil
	return all
}
