// Package client is the charla client SDK: one authenticated session of the
// real-time channel plus the REST pass-throughs.
//
// # Sessions
//
// A Client owns exactly one logical user session. The credential is passed
// at construction and never shared between clients:
//
//	c := client.New(client.Config{
//		SocketURL: "ws://localhost:8080/socket",
//		APIBase:   "http://localhost:8080",
//		Token:     creds.Token,
//	})
//	if err := c.Connect(ctx); err != nil { ... }
//	defer c.Disconnect()
//
// # Connection lifecycle
//
// Connect moves the session through Disconnected -> Connecting -> Connected.
// An unexpected drop triggers bounded automatic reconnection (5 attempts,
// 2s apart, same token); after exhaustion the session settles Disconnected
// until Connect is called again. Disconnect is idempotent and tears down the
// connection, all room memberships and any pending reconnection attempts.
//
// Connectivity() exposes a boolean stream of Connected vs not: subscribers
// see the current value immediately and every transition thereafter.
//
// # Rooms and messages
//
// JoinChat and JoinUserRoom subscribe the session to rooms; both are
// fire-and-forget and require the session to be Connected. Outbound
// messages are a tagged union: DirectMessage (receiver-addressed) or
// GroupMessage (conversation-addressed), so a message always has exactly
// one routing target. Send stamps the timestamp and emits the message;
// while disconnected it returns ErrNotConnected without touching the
// transport.
//
// # Inbound events
//
// On(name) returns a Subscription whose channel receives every occurrence
// of the named event after it attaches; Cancel removes the listener. There
// is no buffering or replay: payloads delivered before attaching, or across
// a reconnect gap, are recovered through History, not the channel.
//
// # REST
//
// CreateConversation, Conversations, History and the friend calls are thin
// JSON pass-throughs; failures carry the response status as *APIError.
package client
