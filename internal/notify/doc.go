// Package notify holds the per-session notification feed: an ordered,
// newest-first list of notifications with a derived unread count, a set of
// self-expiring toasts, and the correlation rule that ties notifications
// to complaints.
//
// A Store is created once per authenticated session and handed to every
// consumer explicitly. All mutations go through its methods and are
// serialized on a single mutex, so the push listener goroutine, toast
// timers and the UI loop can share it safely.
package notify
