package engine

type queued struct {
	cmd  *Command
	args [][]byte
}

// Tx is the transaction state of one connection. The zero value is a
// connection outside MULTI. A Tx must not be shared between goroutines.
type Tx struct {
	queuing bool
	queue   []queued
}

// Queuing reports whether MULTI is active.
func (tx *Tx) Queuing() bool { return tx.queuing }

// Len returns the number of queued commands.
func (tx *Tx) Len() int { return len(tx.queue) }

// Reset drops any queued commands and leaves MULTI.
func (tx *Tx) Reset() {
	tx.queuing = false
	tx.queue = nil
}

// enqueue validates the command shape and appends it. An invalid command is
// rejected without affecting what was queued so far.
func (tx *Tx) enqueue(cmd *Command, args [][]byte) Reply {
	if err := cmd.validate(args); err != nil {
		return ErrReply(AsError(err))
	}
	owned := make([][]byte, len(args))
	for i, a := range args {
		owned[i] = append([]byte(nil), a...)
	}
	tx.queue = append(tx.queue, queued{cmd: cmd, args: owned})
	return queuedReply
}

func (e *Engine) handleTx(tx *Tx, cmd *Command, args [][]byte) Reply {
	if err := cmd.validate(args); err != nil {
		return ErrReply(AsError(err))
	}
	switch cmd.Name {
	case "multi":
		if tx.queuing {
			return ErrReply(ErrNestedMulti)
		}
		tx.queuing = true
		tx.queue = nil
		return OK()
	case "discard":
		if !tx.queuing {
			return ErrReply(ErrDiscardNoMulti)
		}
		tx.Reset()
		return OK()
	case "exec":
		if !tx.queuing {
			return ErrReply(ErrExecNoMulti)
		}
		batch := tx.queue
		tx.Reset()
		return e.execBatch(batch)
	}
	return ErrReply(ErrInvalidArgs)
}

// execBatch runs every queued command under one exclusive lock, so no other
// command observes a partially applied batch. A failing command does not
// stop the batch; its error fills its slot.
func (e *Engine) execBatch(batch []queued) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.writeCtx()
	results := make([]Reply, len(batch))
	for i, q := range batch {
		results[i] = e.invoke(c, q.cmd, q.args)
	}
	return ArrayReply(results)
}

func registerTx(e *Engine) {
	for _, name := range []string{"multi", "exec", "discard"} {
		e.Register(&Command{Name: name, MinArgs: 0, MaxArgs: 0, Flags: FlagTx | FlagNoScript})
	}
}
