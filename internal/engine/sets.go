package engine

func registerSets(e *Engine) {
	e.Register(&Command{Name: "sadd", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Run: cmdSAdd})
	e.Register(&Command{Name: "srem", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Run: cmdSRem})
	e.Register(&Command{Name: "scard", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdSCard})
	e.Register(&Command{Name: "sismember", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Run: cmdSIsMember})
	e.Register(&Command{Name: "smismember", MinArgs: 2, MaxArgs: -1, Flags: FlagReadOnly, Run: cmdSMIsMember})
	e.Register(&Command{Name: "smembers", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly, Run: cmdSMembers})
	e.Register(&Command{Name: "srandmember", MinArgs: 1, MaxArgs: 2, Flags: FlagReadOnly, Check: checkOptionalCount, Run: cmdSRandMember})
	e.Register(&Command{Name: "spop", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Check: checkPopCount, Run: cmdSPop})
}

func members(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

func cmdSAdd(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.setOrCreate(args[0])
	if err != nil {
		return Reply{}, err
	}
	return IntReply(int64(s.Add(members(args[1:])...))), nil
}

func cmdSRem(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil || s == nil {
		return IntReply(0), err
	}
	n := s.Rem(members(args[1:])...)
	c.dropIfEmpty(args[0], s.Card())
	return IntReply(int64(n)), nil
}

func cmdSCard(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil || s == nil {
		return IntReply(0), err
	}
	return IntReply(int64(s.Card())), nil
}

func cmdSIsMember(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil || s == nil {
		return IntReply(0), err
	}
	return BoolReply(s.IsMember(string(args[1]))), nil
}

// SMISMEMBER answers one 0/1 per member, in argument order.
func cmdSMIsMember(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil {
		return Reply{}, err
	}
	items := make([]Reply, len(args)-1)
	for i, m := range args[1:] {
		items[i] = BoolReply(s != nil && s.IsMember(string(m)))
	}
	return ArrayReply(items), nil
}

func cmdSMembers(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil || s == nil {
		return ArrayReply(nil), err
	}
	return KeyStrings(s.Members()), nil
}

func checkOptionalCount(args [][]byte) error {
	if len(args) == 2 {
		_, err := parseInt(args[1])
		return err
	}
	return nil
}

// SRANDMEMBER key [count]: a positive count yields distinct members, a
// negative one allows repeats.
func cmdSRandMember(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil {
		return Reply{}, err
	}
	if len(args) == 1 {
		if s == nil || s.Card() == 0 {
			return NilReply(), nil
		}
		return BulkString(s.RandMember(1)[0]), nil
	}
	count, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	if s == nil {
		return ArrayReply(nil), nil
	}
	return KeyStrings(s.RandMember(count)), nil
}

func cmdSPop(c *Ctx, args [][]byte) (Reply, error) {
	s, err := c.set(args[0])
	if err != nil {
		return Reply{}, err
	}
	if len(args) == 1 {
		if s == nil {
			return NilReply(), nil
		}
		popped := s.Pop(1)
		c.dropIfEmpty(args[0], s.Card())
		if len(popped) == 0 {
			return NilReply(), nil
		}
		return BulkString(popped[0]), nil
	}
	count, err := parseIndex(args[1])
	if err != nil {
		return Reply{}, err
	}
	if s == nil {
		return ArrayReply(nil), nil
	}
	popped := s.Pop(count)
	c.dropIfEmpty(args[0], s.Card())
	return KeyStrings(popped), nil
}
