// Package lua runs editor plugins written in Lua on gopher-lua.
//
// Each activation gets its own sandboxed LState with only the base, table,
// string and math libraries opened. File loading and module loading
// (dofile, loadfile, load, loadstring, require, module) are removed, and
// print is redirected to the plugin log. The capability object is exposed
// as the global table editor:
//
//	editor.set_interval(function()
//	    editor.log(#editor.get_text())
//	end, 1000)
//
//	function deactivate()
//	    editor.log("bye")
//	end
//
// Every entry into Lua code runs under a watchdog context; code that runs
// longer than the configured timeout fails with ErrExecutionTimeout.
package lua
