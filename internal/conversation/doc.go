// Package conversation provides conversation management and real-time fan-out.
//
// # Service
//
// The Service sits between the socket/REST handlers and the store:
//
//	svc := conversation.New(store, logger)
//
// Key operations:
//
//   - Create(ctx, name, participants, isGroup, admins): validate and persist
//     a conversation
//   - ListForUser(ctx, userID): conversations ordered by recent activity
//   - History(ctx, conversationID, limit): persisted messages in send order
//   - Append(ctx, msg): validate addressing and persist one message
//
// # Invariants
//
// Create enforces the conversation invariants: at least two participants,
// exactly two and no admins for direct chats, and admins being a subset of
// participants. Append enforces the addressing invariant: a message carries
// exactly one of conversation ID or receiver ID. Direct messages are filed
// under the two-party conversation with the receiver, created on first
// contact.
//
// # Broadcasting
//
// The Broadcaster is the in-memory room registry used for delivery:
//
//	ch, subID := broadcaster.Subscribe(ctx, room)
//	broadcaster.Publish(room, &Delivery{Room: room, Event: "newMessage", Payload: raw})
//
// A room is a pure routing key: either a conversation ID or a user ID (the
// user's personal notification room). Deliveries are ephemeral; history is
// recovered through the Service, not the Broadcaster.
package conversation
