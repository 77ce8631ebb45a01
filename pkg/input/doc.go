// Package input turns capture events into candidate file lists.
//
// Two channels feed the same Sink. The drag channel is a two-state machine:
//
//	idle --dragenter/dragover--> dragging
//	dragging --dragleave--> idle
//	dragging --drop--> (emit files) idle
//
// A drop that arrives while idle is ignored. Every drag event handled by
// the machine has its default action prevented, so the host never
// navigates to or opens a dropped file behind the machine's back.
//
// The picker channel has no state: each change event emits its files.
package input
