// Package controller owns the single overlay surface.
//
// Controller is an actor: one goroutine serializes every SHOW/HIDE command, status query and
// watchdog sample. The surface reference lives only inside the PRESENT variant of its state.
// Surface creation runs on its own goroutine and reports back through a result channel, so a HIDE
// is never queued behind a slow or failing attach.
package controller
