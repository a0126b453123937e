// Package ws streams conversation updates to connected sidebar pages.
//
// Hub implements conversation.Surface: every Append, Clear, SetLoading and
// SetStatus call becomes a JSON event broadcast to all WebSocket clients.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//   - query: Ask a question ({"type": "query", "message": "..."})
//
// Message Types (Server → Client):
//   - connected: Sent once after the upgrade, followed by the history replay
//   - item: Conversation entry
//   - clear: Conversation reset
//   - loading: Request in flight ({"loading": true|false})
//   - status: Capture status line
//   - pong: Reply to ping
//   - error: Request could not be handled
//
// Example Usage:
//
//	hub := ws.NewHub(logger, metrics)
//	controller := conversation.NewController(client, f, fetcher, hub, logger)
//	hub.SetHistory(controller.History)
//	hub.SetAsker(controller)
//	router.GET("/stream", hub.HandleConnection)
package ws
