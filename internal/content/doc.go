// Package content implements the synchronization state machine between the
// live editing surface and the persisted form field.
//
// The Engine holds two snapshots: current, the live content, and previous,
// the content as of the last committed change (or the initial load). It is
// Clean while they are known to match and Dirty from the first mutation
// after a commit. Losing focus while Dirty commits: change fires with both
// snapshots, previous becomes current, and the engine returns to Clean.
//
//	          Input / SetContent
//	  Clean ─────────────────────► Dirty ──┐ Input / SetContent
//	    ▲                            │ ◄───┘
//	    └──────── Blur (change) ─────┘
//
// Every mutation writes current into the field before input is published.
// Listeners only ever receive copies of the content.
package content
