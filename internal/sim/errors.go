package sim

// ConfigError is a configuration error raised synchronously before any
// stepping happens: bad intervals, unsupported stop conditions, unknown
// states in a supplied configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// ContractError is a runtime invariant violation: the stepper or the run
// loop broke a guarantee that should be unreachable, such as stepping past
// the requested target or simulated time overshooting a checkpoint. It
// aborts the run immediately; there is no recovery path.
type ContractError struct {
	Message string
}

func (e *ContractError) Error() string { return e.Message }
