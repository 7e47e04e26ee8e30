// Package event provides the in-process pub/sub bus that carries graph
// notifications from the store to its listeners.
//
// # Delivery Model
//
// Each subscription owns a buffered channel and one goroutine. Publish
// enqueues and returns; handlers run later on the subscription goroutine.
// A handler therefore never executes inside the mutation that produced the
// event, and events reach any single subscription in publish order.
//
//	bus := event.NewBus(event.BusConfig{BufferSize: 64})
//	defer bus.Close()
//
//	sub := bus.Subscribe([]string{"graph.changed"}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        log.Println("changed", evt.GraphID())
//	        return nil
//	    }))
//	defer sub.Unsubscribe()
//
//	bus.Publish(ctx, event.New("graph.changed", "store", "flow-1", payload))
//
// # Back-pressure
//
// Publish blocks when a subscription buffer is full unless
// BusConfig.NonBlocking is set, in which case the event is dropped and
// BusConfig.OnDrop is invoked.
package event
