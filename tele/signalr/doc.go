// Package signalr implements the client side of the SignalR JSON hub
// protocol as spoken by the Easee streams service.
//
// Endpoints exchange text WebSocket messages. One message carries zero or
// more JSON documents, each terminated by the record separator byte 0x1E.
// Every document is one hub Message, classified by its numeric "type".
//
// Connection setup is Negotiation: authenticated POST for a connection
// token, WebSocket upgrade with that token and the bearer token in the
// query, then the handshake document.
//
// Conn is single reader, single writer. Close may be called from another
// goroutine to unblock a pending Recv.
package signalr
