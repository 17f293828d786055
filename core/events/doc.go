// Package events defines the coordinator events emitted on the event bus.
//
// Available event types:
//   - StateChanged: the charging decision flipped
//   - ScheduleUpdated: the live schedule was refreshed
//   - ActuationFailed: the charger rejected or missed a command
package events
