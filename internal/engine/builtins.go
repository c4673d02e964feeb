package engine

func registerBuiltins(e *Engine) {
	registerTx(e)
	registerGeneric(e)
	registerStrings(e)
	registerHashes(e)
	registerLists(e)
	registerSets(e)
	registerZSets(e)
}

// Commands returns the names of all registered commands.
func (e *Engine) Commands() []string {
	names := make([]string, 0, len(e.commands))
	for name := range e.commands {
		names = append(names, name)
	}
	return names
}
