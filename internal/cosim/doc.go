// Package cosim provides the real-time co-simulation stepping engine.
//
// The engine drives a black-box [Model] forward in fixed increments while
// keeping simulated time in step with the wall clock:
//
//   - [Model]: the co-simulation slave (setup, init mode, step, scalar I/O, terminate)
//   - [Handle]: lifecycle guard enforcing setup → init → step* → terminate
//   - [Mailbox]: single-producer mailbox feeding [ParameterUpdate] values to the engine
//   - [Reporter]: sink receiving one [StepResult] per completed step
//   - [Engine]: paces, exchanges and reports; one Engine is one run
//
// # Example
//
//	mb := cosim.NewMailbox()
//	eng := cosim.New(model, cosim.DefaultConfig(),
//		cosim.WithUpdates(mb.Updates()),
//		cosim.WithReporter(cosim.NewTextReporter(os.Stdout)),
//	)
//	summary, err := eng.Run(ctx)
//
// # Pacing
//
// Before every step the engine sleeps until wall-clock time has caught up
// with simulated time. When the model is slower than real time the engine
// simply stops sleeping; it never skips steps to catch up.
//
// # Thread Safety
//
// An Engine and its Model are owned by the goroutine calling [Engine.Run].
// Only the update channel is shared, with exactly one producer.
package cosim
