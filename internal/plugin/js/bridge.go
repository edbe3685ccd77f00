package js

import (
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/plugin"
)

type startFunc func(time.Duration, func() error) (plugin.TimerID, error)

// bind installs the editor object and console.log. Failed capability calls
// are thrown into script code as exceptions.
func (u *unit) bind(ctx *plugin.Context) error {
	vm := u.vm
	throw := func(err error) {
		panic(vm.NewGoError(err))
	}

	editor := vm.NewObject()
	methods := map[string]func(goja.FunctionCall) goja.Value{
		"getContent": func(goja.FunctionCall) goja.Value {
			html, err := ctx.GetContent()
			if err != nil {
				throw(err)
			}
			return vm.ToValue(html)
		},
		"setContent": func(call goja.FunctionCall) goja.Value {
			if err := ctx.SetContent(call.Argument(0).String()); err != nil {
				throw(err)
			}
			return goja.Undefined()
		},
		"getText": func(goja.FunctionCall) goja.Value {
			text, err := ctx.GetText()
			if err != nil {
				throw(err)
			}
			return vm.ToValue(text)
		},
		"setTimeout": func(call goja.FunctionCall) goja.Value {
			return u.startTimer(call, ctx.SetTimeout, throw)
		},
		"setInterval": func(call goja.FunctionCall) goja.Value {
			return u.startTimer(call, ctx.SetInterval, throw)
		},
		"clearTimer": func(call goja.FunctionCall) goja.Value {
			id := call.Argument(0).ToInteger()
			return vm.ToValue(id > 0 && ctx.ClearTimer(plugin.TimerID(id)))
		},
		"onCleanup": func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				panic(vm.NewTypeError("onCleanup expects a function"))
			}
			if err := ctx.OnCleanup(func() error { return u.invoke(fn) }); err != nil {
				throw(err)
			}
			return goja.Undefined()
		},
		"on": func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(1))
			if !ok {
				panic(vm.NewTypeError("on expects an event name and a function"))
			}
			id, err := ctx.On(call.Argument(0).String(), func(evt event.Event) error {
				return u.call(func() error {
					_, err := fn(goja.Undefined(), u.vm.ToValue(evt.Payload()))
					return err
				})
			})
			if err != nil {
				throw(err)
			}
			return vm.ToValue(id)
		},
		"off": func(call goja.FunctionCall) goja.Value {
			id := call.Argument(0).ToInteger()
			return vm.ToValue(id > 0 && ctx.Off(uint64(id)))
		},
		"log": func(call goja.FunctionCall) goja.Value {
			ctx.Log(joinArgs(call))
			return goja.Undefined()
		},
	}
	for name, fn := range methods {
		if err := editor.Set(name, fn); err != nil {
			return err
		}
	}
	if err := vm.Set("editor", editor); err != nil {
		return err
	}

	console := vm.NewObject()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		ctx.Log(joinArgs(call))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	return vm.Set("console", console)
}

// startTimer reads (fn, ms) from the call and returns the timer handle.
func (u *unit) startTimer(call goja.FunctionCall, start startFunc, throw func(error)) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(u.vm.NewTypeError("timer callback must be a function"))
	}
	d := plugin.Millis(call.Argument(1).ToFloat())
	id, err := start(d, func() error { return u.invoke(fn) })
	if err != nil {
		throw(err)
	}
	return u.vm.ToValue(uint64(id))
}

func joinArgs(call goja.FunctionCall) string {
	parts := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		parts = append(parts, arg.String())
	}
	return strings.Join(parts, " ")
}
