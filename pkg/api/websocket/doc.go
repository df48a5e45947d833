// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/orders/:id/events to receive real-time
// updates about order fulfillment.
package websocket
