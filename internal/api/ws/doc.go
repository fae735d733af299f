// Package ws streams form lifecycle events to WebSocket clients.
//
// The Hub is installed as the manager's event sink. Publish runs on the UI
// goroutine and never blocks: each client has a bounded buffer and events
// that do not fit are dropped for that client only.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//   - subscribe: Restrict events to the listed groups (empty means all)
//
// Message Types (Server → Client):
//   - system: Connection greeting
//   - event: One lifecycle transition
//   - pong, subscribed: Replies
//   - error: Malformed or unknown client message
//
// Example Usage:
//
//	hub := ws.NewHub(metrics, logger)
//	mgr.WithEventSink(hub.Publish)
//	router.GET("/events", hub.HandleConnection)
package ws
