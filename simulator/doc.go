// Package simulator emulates a charger and the car plugged into it. It
// acknowledges evsmart commands and publishes a state of charge that rises
// while charging, which is enough to run the service without hardware.
package simulator
