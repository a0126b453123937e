// Package conversation holds the sidebar's state: the conversation history,
// the selected data source, the captured page and the single in-flight request.
//
// The Controller never touches a UI directly. Everything visible goes through
// the Surface it was built with (the WebSocket hub in production, a recorder
// in tests), so the same flows work headless.
package conversation
