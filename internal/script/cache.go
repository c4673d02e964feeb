// Package script embeds Lua and exposes the keyspace to it through
// redis.call and redis.pcall. Scripts run with the same command semantics
// and error texts as direct clients.
package script

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/flashdb/flashkv/internal/engine"
)

// ErrScriptTooLarge is returned for bodies over the configured maximum.
var ErrScriptTooLarge = errors.New("script body exceeds the configured maximum size")

// Sum returns the lower-case hex SHA-1 digest of src.
func Sum(src []byte) string {
	h := sha1.Sum(src)
	return hex.EncodeToString(h[:])
}

type cached struct {
	src   string
	proto *lua.FunctionProto
}

// Cache maps script digests to compiled bytecode. Entries stay until Flush.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	scripts map[string]cached
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{scripts: make(map[string]cached)}
}

// Load compiles src, stores it and returns its digest. Loading the same
// body twice compiles it once.
func (c *Cache) Load(src []byte) (string, *lua.FunctionProto, error) {
	sha := Sum(src)
	c.mu.RLock()
	s, ok := c.scripts[sha]
	c.mu.RUnlock()
	if ok {
		return sha, s.proto, nil
	}

	proto, err := compile(sha, src)
	if err != nil {
		return "", nil, err
	}
	c.mu.Lock()
	c.scripts[sha] = cached{src: string(src), proto: proto}
	c.mu.Unlock()
	return sha, proto, nil
}

// Get looks a digest up, ignoring case.
func (c *Cache) Get(sha string) (*lua.FunctionProto, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scripts[strings.ToLower(sha)]
	return s.proto, ok
}

// Exists reports whether a digest is cached, ignoring case.
func (c *Cache) Exists(sha string) bool {
	_, ok := c.Get(sha)
	return ok
}

// Flush drops every cached script.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.scripts = make(map[string]cached)
	c.mu.Unlock()
}

// Len returns the number of cached scripts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scripts)
}

func compile(sha string, src []byte) (*lua.FunctionProto, error) {
	name := "user_script_" + sha
	chunk, err := parse.Parse(strings.NewReader(string(src)), name)
	if err != nil {
		return nil, engine.NewError(engine.KindScript, fmt.Sprintf("ERR Error compiling script (new function): %s", oneLine(err.Error())))
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, engine.NewError(engine.KindScript, fmt.Sprintf("ERR Error compiling script (new function): %s", oneLine(err.Error())))
	}
	return proto, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
