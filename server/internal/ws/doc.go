// Package ws implements the WebSocket hub for plantops-server.
//
// Each connection to /ws/factories/{factory} is one mounted dashboard view.
// The hub gives it its own refresh.Driver: the driver recomputes the
// factory's metrics immediately on connect, then every second while a
// cooking cycle is open and every minute otherwise, and right away after any
// record mutation. The driver stops when the connection closes or the hub's
// Run context is cancelled.
//
// Message format sent to clients:
//
//	{
//	  "event": "metrics",
//	  "data":  { /* same schema as GET /api/v1/factories/{factory}/today */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level.
package ws
