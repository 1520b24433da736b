package engine

import (
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/tidwall/gjson"

	"github.com/atlasflow/engine/pkg/api"
)

// LuaEnv evaluates step precondition scripts. States are pooled and
// re-sandboxed per evaluation; the run-facing bindings close over the
// evaluating step's RunContext
type LuaEnv struct {
	statePool chan *lua.State
}

const luaStatePoolSize = 10

const luaGlobalTableIndex = -2

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewLuaEnv creates a Lua evaluation environment with a state pool
func NewLuaEnv() *LuaEnv {
	return &LuaEnv{
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
}

// EvaluatePredicate runs a step's precondition against the run context
// and returns its boolean result. The script sees config(path),
// artifact(key), and has_artifact(key)
func (e *LuaEnv) EvaluatePredicate(
	step *api.Step, rc *api.RunContext,
) (bool, error) {
	l := e.getState()
	defer e.returnState(l)

	e.setupSandbox(l)
	registerBindings(l, step, rc)

	if err := lua.LoadString(l, step.Predicate.Script); err != nil {
		return false, fmt.Errorf("%w: %s: %s", ErrLuaLoad, step.ID, err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("%w: %s: %s", ErrLuaExecution, step.ID, err)
	}

	res := l.ToBoolean(-1)
	l.Pop(1)
	return res, nil
}

func (e *LuaEnv) setupSandbox(l *lua.State) {
	lua.OpenLibraries(l)
	l.Global("_G")
	for _, name := range luaExclude {
		l.PushNil()
		l.SetField(luaGlobalTableIndex, name)
	}
	l.Pop(1)
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case l := <-e.statePool:
		return l
	default:
		return lua.NewState()
	}
}

func (e *LuaEnv) returnState(l *lua.State) {
	l.SetTop(0)

	select {
	case e.statePool <- l:
	default:
	}
}

func registerBindings(l *lua.State, step *api.Step, rc *api.RunContext) {
	l.Register("config", func(l *lua.State) int {
		path := lua.CheckString(l, 1)
		pushResult(l, rc.ConfigValue(path))
		return 1
	})
	l.Register("artifact", func(l *lua.State) int {
		key := lua.CheckString(l, 1)
		value, ok := rc.GetArtifact(key)
		if !ok {
			l.PushNil()
			return 1
		}
		pushValue(l, value)
		return 1
	})
	l.Register("has_artifact", func(l *lua.State) int {
		key := lua.CheckString(l, 1)
		l.PushBoolean(rc.HasArtifact(key))
		return 1
	})
	l.Register("warn", func(l *lua.State) int {
		msg := lua.CheckString(l, 1)
		rc.AddWarning(step.ID, msg)
		return 0
	})
}

func pushResult(l *lua.State, v gjson.Result) {
	switch {
	case !v.Exists():
		l.PushNil()
	case v.Type == gjson.True || v.Type == gjson.False:
		l.PushBoolean(v.Bool())
	case v.Type == gjson.Number:
		l.PushNumber(v.Float())
	case v.Type == gjson.String:
		l.PushString(v.String())
	default:
		l.PushString(v.Raw)
	}
}

func pushValue(l *lua.State, value any) {
	switch v := value.(type) {
	case string:
		l.PushString(v)
	case bool:
		l.PushBoolean(v)
	case int:
		l.PushInteger(v)
	case int64:
		l.PushInteger(int(v))
	case float64:
		l.PushNumber(v)
	case nil:
		l.PushNil()
	default:
		l.PushString(fmt.Sprintf("%v", v))
	}
}
