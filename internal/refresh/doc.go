// Package refresh keeps host pages in step with the cart after the engine
// changed it. The Coordinator broadcasts refresh messages through the Hub,
// which also forwards change signals sent by host pages over the WebSocket.
package refresh
