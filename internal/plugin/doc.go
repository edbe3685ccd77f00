// Package plugin hosts third-party editor plugins.
//
// A plugin is a named piece of source code in one of the registered runtimes
// (JavaScript via package js, Lua via package lua). Registration only stores
// the code. Enabling compiles it into a Unit and activates it against a fresh
// Context, the only surface the plugin can reach:
//
//	GetContent / SetContent / GetText        bounded access to editor content
//	SetTimeout / SetInterval / ClearTimer    cancellable timers
//	On / Off                                 tracked event subscriptions
//	OnCleanup                                callbacks run at teardown
//	Log                                      plugin-scoped logging
//
// Every timer, subscription and cleanup callback acquired through a Context
// is tracked by the Host. Disabling a plugin releases them in reverse
// acquisition order and then closes the Context, so no timer or handler of
// the plugin can run after Disable returns. On subscribes through the
// host's Subscriber on the plugin's behalf; the plugin never holds the event
// bus, the registry, or the Host itself.
//
// # Lifecycle
//
//	Register ──► Registered ──Enable──► Enabled ──Disable──► Disabled
//	                  │                    ▲                     │
//	                  │                    └──────Enable─────────┘
//	                  └── Enable fails ──► Disabled
//
// Unregister disables an Enabled plugin first and then drops the record.
//
// Failures inside plugin code (compile errors, exceptions during activation,
// panics in timer callbacks) are wrapped in *ExecutionError and sent to the
// Host's Reporter. They never affect other plugins or listeners.
package plugin
