package eventType

// Events published on an engine's diagnostics event manager. Every event
// carries the keys listed next to it.
const (
	StubInvoked = "stub.invoked" // service, slot, file, line

	ModuleInitSucceeded = "module.init.succeeded" // module
	ModuleInitFailed    = "module.init.failed"    // module, error
	ModuleExited        = "module.exited"         // module

	BackendLoading    = "backend.loading"     // service, mode, library
	BackendBound      = "backend.bound"       // service, mode, library, binding
	BackendBindFailed = "backend.bind.failed" // service, mode, library, error
	BackendOverridden = "backend.overridden"  // service, binding, previous
	BackendUnbinding  = "backend.unbinding"   // service, binding
	BackendUnbound    = "backend.unbound"     // service, binding

	EngineStarted = "engine.started" // root
	EngineStopped = "engine.stopped" // root
)
