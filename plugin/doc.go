// Package plugin bridges the lo-fi engine to a plugin host: the automatable
// parameter set, the persisted component state and a Processor that
// applies parameters and host transport to the engine on every callback.
//
// Host lifecycle plumbing (component factories, editors) lives elsewhere;
// a host adapter owns a Params value, calls Processor.Setup once the
// sample rate and bus layout are known, then Process32 or Process64 from
// its audio thread.
package plugin
