package scripting

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

// ConditionPrefix is prepended to a condition name to form its Lua function.
const ConditionPrefix = "condition_"

// CombatantInfo is a snapshot of a combatant's state passed to Lua.
type CombatantInfo struct {
	Name      string
	Health    int
	MaxHealth int
	Armor     int
	ComboSlot int
	Effects   []string
	Tags      []string
}

// ConditionContext is the argument of every condition function.
type ConditionContext struct {
	Turn      int
	TotalRoll int
	Actor     CombatantInfo
	Target    CombatantInfo
}

// Manager holds compiled condition scripts. Every function named
// condition_<name> becomes the condition <name>.
//
// Scripts never share a VM between callers: each Session executes the
// compiled chunks in a fresh sandboxed LState, so globals and upvalues a
// script mutates live only as long as that Session. Manager is safe for
// concurrent use.
type Manager struct {
	mu         sync.Mutex
	chunks     []*lua.FunctionProto
	conditions map[string]bool
	instLimit  int
	logger     *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit. A nil logger
// discards output.
// Postcondition: Returns a non-nil Manager that knows no conditions.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		conditions: make(map[string]bool),
		instLimit:  instLimit,
		logger:     logger,
	}
}

// LoadDir compiles every *.lua file in scriptDir in lexicographic order and
// executes them once in a fresh VM to discover the condition functions. On
// success the new scripts replace any previously loaded ones.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Conditions() lists every condition_ function defined.
func (m *Manager) LoadDir(scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	chunks := make([]*lua.FunctionProto, 0, len(luaFiles))
	for _, path := range luaFiles {
		proto, err := compileFile(path)
		if err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
		chunks = append(chunks, proto)
	}

	L, err := m.newState(chunks)
	if err != nil {
		return err
	}
	found := make(map[string]bool)
	L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok || v.Type() != lua.LTFunction || !strings.HasPrefix(string(name), ConditionPrefix) {
			return
		}
		found[strings.TrimPrefix(string(name), ConditionPrefix)] = true
	})
	L.Close()

	m.mu.Lock()
	m.chunks = chunks
	m.conditions = found
	m.mu.Unlock()

	m.logger.Info("condition scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
		zap.Int("conditions", len(found)),
	)
	return nil
}

// Conditions returns the loaded condition names, sorted.
func (m *Manager) Conditions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.conditions))
	for name := range m.conditions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewSession starts a VM holding the currently loaded scripts. Top-level
// script code runs again, so a script's state starts over in every Session.
//
// Postcondition: The caller must Close the returned Session.
func (m *Manager) NewSession() (*Session, error) {
	m.mu.Lock()
	chunks, conditions := m.chunks, m.conditions
	m.mu.Unlock()

	L, err := m.newState(chunks)
	if err != nil {
		return nil, err
	}
	return &Session{state: L, conditions: conditions, instLimit: m.instLimit, logger: m.logger}, nil
}

// Evaluate calls condition_<name>(ctx) in a throwaway Session and reports
// its truthiness. Callers evaluating many conditions against one combat
// should hold a Session instead.
//
// Postcondition: known == false implies value == false.
func (m *Manager) Evaluate(name string, ctx ConditionContext) (value bool, known bool) {
	m.mu.Lock()
	loaded := m.conditions[name]
	m.mu.Unlock()
	if !loaded {
		return false, false
	}
	sess, err := m.NewSession()
	if err != nil {
		m.logger.Warn("scripting: starting session", zap.Error(err))
		return false, true
	}
	defer sess.Close()
	return sess.Evaluate(name, ctx)
}

// Close forgets the loaded scripts. The Manager knows no conditions
// afterwards; open Sessions keep working until they are closed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.conditions = make(map[string]bool)
}

func (m *Manager) newState(chunks []*lua.FunctionProto) (*lua.LState, error) {
	L := NewSandboxedState()
	m.RegisterModules(L)
	for _, proto := range chunks {
		err := withBudget(L, m.instLimit, func() error {
			L.Push(L.NewFunctionFromProto(proto))
			return L.PCall(0, lua.MultRet, nil)
		})
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("scripting: running %q: %w", proto.SourceName, err)
		}
		L.SetTop(0)
	}
	return L, nil
}

func compileFile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	chunk, err := parse.Parse(bufio.NewReader(f), path)
	if err != nil {
		return nil, err
	}
	return lua.Compile(chunk, path)
}

// Session is one VM's view of the loaded scripts. It is not safe for
// concurrent use.
type Session struct {
	state      *lua.LState
	conditions map[string]bool
	instLimit  int
	logger     *zap.Logger
}

// Evaluate calls condition_<name>(ctx) and reports its truthiness. known is
// false when no such function is loaded. Lua runtime errors and exhausted
// instruction budgets are logged at Warn level and evaluate to false.
//
// Postcondition: known == false implies value == false.
func (s *Session) Evaluate(name string, ctx ConditionContext) (value bool, known bool) {
	if s.state == nil || !s.conditions[name] {
		return false, false
	}
	L := s.state
	fn := L.GetGlobal(ConditionPrefix + name)

	err := withBudget(L, s.instLimit, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, contextTable(L, ctx))
	})
	if err != nil {
		L.SetTop(0)
		s.logger.Warn("scripting: condition failed",
			zap.String("condition", name),
			zap.Error(err),
		)
		return false, true
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), true
}

// Close releases the VM.
func (s *Session) Close() {
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}

func contextTable(L *lua.LState, ctx ConditionContext) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("turn", lua.LNumber(ctx.Turn))
	t.RawSetString("total_roll", lua.LNumber(ctx.TotalRoll))
	t.RawSetString("actor", combatantTable(L, ctx.Actor))
	t.RawSetString("target", combatantTable(L, ctx.Target))
	return t
}

func combatantTable(L *lua.LState, c CombatantInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("health", lua.LNumber(c.Health))
	t.RawSetString("max_health", lua.LNumber(c.MaxHealth))
	t.RawSetString("armor", lua.LNumber(c.Armor))
	t.RawSetString("combo_slot", lua.LNumber(c.ComboSlot))
	t.RawSetString("effects", stringSet(L, c.Effects))
	t.RawSetString("tags", stringSet(L, c.Tags))
	return t
}

// stringSet renders names as a Lua set table: set[name] == true.
func stringSet(L *lua.LState, names []string) *lua.LTable {
	t := L.CreateTable(0, len(names))
	for _, n := range names {
		t.RawSetString(n, lua.LTrue)
	}
	return t
}
