// Package form defines the form instance record and the logic contract user
// code implements to receive lifecycle notifications.
//
// Lifecycle:
//   - Init: identity, logic and display root are wired
//   - Open: attached to a group
//   - Cover/Reveal, Pause/Resume, DepthChanged, Refocus, Update: driven by the group
//   - Close: detached from its group, still cached
//   - Release: destroyed by cache eviction or shutdown, never reused
//
// Notifications to a missing logic sink or a released form are logged and
// ignored. Panics raised by logic callbacks are recovered and logged.
package form
