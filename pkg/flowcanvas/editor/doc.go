// Package editor wires the graph store, the persistence guard, the save
// pipeline and palette drops into one editing session for a flow.
//
// A Session owns its store. Loads try the remote API first, then the
// durable cache, then a starter graph holding a single start node, so a
// session always opens with something to edit. Edges are reconciled
// against the loaded nodes; edges that cannot be placed are dropped and
// reported as a warning message.
//
//	sess, err := editor.New("flow-1", editor.WithRemote(client), editor.WithCache(c))
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	sess.OnMessage(func(m editor.Message) { fmt.Println(m.Text) })
//	if _, err := sess.Load(ctx); err != nil {
//	    return err
//	}
//	sess.Start(ctx)
//
// Open builds a Session from config.Settings.
package editor
