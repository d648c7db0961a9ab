/*Package device defines the uniform model shared by every instrument driver.

Drivers are plain structs; what they can do is expressed through small
capability interfaces which the HTTP layer discovers by type assertion.
A laser driver typically satisfies Enabler plus the interfaces in
generichttp/laser; a deformable mirror satisfies the interfaces in
generichttp/dm, and so on.
*/
package device

// Initializer can establish first contact with the hardware.  Initialize is
// called once before any other method; it is where SDK handles are opened
// and calibration scalars (actuator counts, power limits) are read.
type Initializer interface {
	Initialize() error
}

// Enabler can be armed and disarmed for a short period of inactivity
type Enabler interface {
	// Enable arms the device
	Enable() error

	// Disable disarms the device
	Disable() error

	// GetEnabled queries whether the device is armed
	GetEnabled() (bool, error)
}

// Shutdowner can be shut down for a prolonged period of inactivity
type Shutdowner interface {
	Shutdown() error
}

// Safer can be put into a state that is safe for humans and hardware
type Safer interface {
	MakeSafe() error
}

// Identifier returns a unique hardware identifier, such as a serial number.
// Some SDKs handling multiple devices do not allow explicit selection of a
// specific unit: a device must be initialized and then queried for its ID.
// Drivers for such "floating" devices satisfy this interface.
type Identifier interface {
	GetID() (string, error)
}

// SettingsProvider exposes a registry of named, typed knobs.  Drivers
// satisfying this interface get a /settings route tree.
type SettingsProvider interface {
	Settings() *Settings
}

// Device is the composite lifecycle every driver provides
type Device interface {
	Initializer
	Enabler
	Shutdowner
}
