package led

// StatusLED is a board LED (ACT, PWR, user) that shows whether the animation
// is running. Triggers are sysfs trigger names such as "heartbeat" or "none".
type StatusLED interface {
	// Set switches the LED and, when trigger is non-empty, its kernel trigger.
	Set(on bool, trigger string) error
	// Name returns the LED's sysfs name, or "" for the no-op LED.
	Name() string
}
