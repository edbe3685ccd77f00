package lua

import (
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/plugin"
)

// bindEditor installs the editor table and replaces print. Every function
// raises a Lua error when the underlying capability call fails.
func (s *State) bindEditor(ctx *plugin.Context) {
	L := s.L
	editor := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get_content": func(L *lua.LState) int {
			html, err := ctx.GetContent()
			if err != nil {
				L.RaiseError("%v", err)
			}
			L.Push(lua.LString(html))
			return 1
		},
		"set_content": func(L *lua.LState) int {
			if err := ctx.SetContent(L.CheckString(1)); err != nil {
				L.RaiseError("%v", err)
			}
			return 0
		},
		"get_text": func(L *lua.LState) int {
			text, err := ctx.GetText()
			if err != nil {
				L.RaiseError("%v", err)
			}
			L.Push(lua.LString(text))
			return 1
		},
		"set_timeout": func(L *lua.LState) int {
			return s.startTimer(L, ctx.SetTimeout)
		},
		"set_interval": func(L *lua.LState) int {
			return s.startTimer(L, ctx.SetInterval)
		},
		"clear_timer": func(L *lua.LState) int {
			id := L.CheckNumber(1)
			L.Push(lua.LBool(ctx.ClearTimer(plugin.TimerID(id))))
			return 1
		},
		"on_cleanup": func(L *lua.LState) int {
			fn := L.CheckFunction(1)
			if err := ctx.OnCleanup(func() error { return s.Call(fn) }); err != nil {
				L.RaiseError("%v", err)
			}
			return 0
		},
		"on": func(L *lua.LState) int {
			name := L.CheckString(1)
			fn := L.CheckFunction(2)
			id, err := ctx.On(name, func(evt event.Event) error {
				return s.Call(fn, payloadTable(s.L, evt))
			})
			if err != nil {
				L.RaiseError("%v", err)
			}
			L.Push(lua.LNumber(id))
			return 1
		},
		"off": func(L *lua.LState) int {
			id := L.CheckNumber(1)
			L.Push(lua.LBool(ctx.Off(uint64(id))))
			return 1
		},
		"log": func(L *lua.LState) int {
			ctx.Log(joinArgs(L))
			return 0
		},
	})
	L.SetGlobal("editor", editor)
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		ctx.Log(joinArgs(L))
		return 0
	}))
}

type startFunc func(time.Duration, func() error) (plugin.TimerID, error)

// startTimer reads (fn, ms) from the stack and pushes the timer handle.
func (s *State) startTimer(L *lua.LState, start startFunc) int {
	fn := L.CheckFunction(1)
	ms := L.OptNumber(2, 0)
	id, err := start(plugin.Millis(float64(ms)), func() error { return s.Call(fn) })
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(lua.LNumber(id))
	return 1
}

// payloadTable converts an event payload to a table with previous_content
// in place of previousContent.
func payloadTable(L *lua.LState, evt event.Event) *lua.LTable {
	t := L.NewTable()
	switch evt.Name {
	case event.Input:
		t.RawSetString("content", lua.LString(evt.Content))
	case event.Change:
		t.RawSetString("content", lua.LString(evt.Content))
		t.RawSetString("previous_content", lua.LString(evt.PreviousContent))
	}
	return t
}

func joinArgs(L *lua.LState) string {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	return strings.Join(parts, " ")
}
