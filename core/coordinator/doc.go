// Package coordinator turns price, state of charge and operator inputs into
// charger on/off commands.
//
// A Coordinator owns all mutable state. Every input, including the hourly
// tick, is delivered as an Event to Evaluate, which must be called from a
// single goroutine in arrival order. Each evaluation refreshes the price
// series, rebuilds the base schedule when allowed, derives the live schedule,
// decides the charging state and switches the charger on transitions only.
package coordinator
