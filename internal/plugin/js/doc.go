// Package js runs editor plugins written in JavaScript on goja.
//
// Each activation gets a fresh goja runtime holding only the ECMAScript
// built-ins, a console.log that writes to the plugin log, and the global
// editor object:
//
//	const id = editor.setInterval(() => {
//	    editor.log(editor.getText().length)
//	}, 1000)
//
//	function deactivate() {
//	    editor.clearTimer(id)
//	}
//
// Every entry into script code is guarded by a watchdog that interrupts the
// runtime once the configured timeout elapses.
package js
