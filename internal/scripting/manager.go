package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/game/dice"
)

// globalScriptID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no VM is registered under the id.
const globalScriptID = "__global__"

// vm is one sandboxed state. An LState is single-threaded, so calls are
// serialized by mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per script set and dispatches hooks.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger
}

// NewManager creates a Manager. src backs engine.dice; nil uses a crypto
// source. logger may be nil.
//
// Postcondition: Returns a non-nil Manager with no script sets loaded.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		src = dice.NewCryptoSource()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadScripts creates a sandboxed VM for id, registers the engine.* modules,
// then executes every *.lua file in dir in lexicographic order. Each file and
// every later hook call get a budget of instLimit opcodes. Loading an id
// again replaces its VM.
//
// Precondition: id must be non-empty; dir must be a readable directory.
// Postcondition: The VM is registered under id; returns error on a read or
// Lua load failure, leaving any previous VM in place.
func (m *Manager) LoadScripts(id, dir string, instLimit int) error {
	if id == "" {
		return fmt.Errorf("scripting: script set id must not be empty")
	}
	return m.loadInto(id, dir, instLimit)
}

// LoadGlobal creates the shared VM used as a CallHook fallback for ids with
// no VM of their own.
func (m *Manager) LoadGlobal(dir string, instLimit int) error {
	return m.loadInto(globalScriptID, dir, instLimit)
}

func (m *Manager) loadInto(key, dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	v := &vm{L: NewSandboxedState(), limit: instLimit}
	m.RegisterModules(v.L)
	for _, path := range luaFiles {
		err := RunWithBudget(v.L, instLimit, func() error { return v.L.DoFile(path) })
		if err != nil {
			v.L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = v
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Debug("scripts loaded",
		zap.String("id", key),
		zap.String("dir", dir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Has reports whether a VM is registered under id.
func (m *Manager) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[id]
	return ok
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}

func (m *Manager) lookup(id string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[id]; ok {
		return v
	}
	return m.vms[globalScriptID]
}

// CallHook calls the named Lua global function in id's VM, falling back to
// the global VM. Returns (LNil, nil) if the hook is not defined or no VM
// exists. Lua runtime errors, including an exhausted budget, are logged at
// Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(id, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.call(id, hook, func(*lua.LState) []lua.LValue { return args }), nil
}

// call runs hook with arguments built inside the target state, so tables are
// owned by the VM that receives them.
func (m *Manager) call(id, hook string, build func(L *lua.LState) []lua.LValue) lua.LValue {
	v := m.lookup(id)
	if v == nil {
		m.logger.Info("scripting: no VM for script set",
			zap.String("id", id),
			zap.String("hook", hook),
		)
		return lua.LNil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil
	}

	ret := lua.LValue(lua.LNil)
	err := RunWithBudget(v.L, v.limit, func() error {
		if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, build(v.L)...); err != nil {
			return err
		}
		ret = v.L.Get(-1)
		v.L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("id", id),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}
	return ret
}
