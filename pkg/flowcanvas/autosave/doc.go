// Package autosave persists a graph store to the remote API a short while
// after the last significant change.
//
// A Saver subscribes to the store's change notifications. Each
// significant change restarts a debounce timer; when it fires the current
// graph is adapted to the save wire shape and sent once. Selection,
// measurement and in-progress drags never schedule a save.
//
//	saver := autosave.New(store, client, autosave.WithCache(c))
//	saver.OnStatus(func(r autosave.Result) { ... })
//	saver.Start(ctx)
//	defer saver.Stop()
//
// Saves run on a context detached from the caller's cancellation, so a
// save that has started always completes. Saves never overlap; the
// response to the latest request is the one that stands.
package autosave
