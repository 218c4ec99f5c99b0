// Package api implements the REST surface of the charla server.
//
// Routes:
//
//	POST   /auth/login
//	POST   /auth/register
//	POST   /auth/reset-password
//	GET    /users/{id}/friends
//	GET    /users/{id}/friend-requests
//	POST   /users/friend-request/email
//	POST   /users/friend-request/accept
//	POST   /users/friend-request/reject
//	DELETE /users/{id}/friends/{friendId}
//	POST   /messages/conversations
//	GET    /messages/conversations/{userId}
//	GET    /messages/conversations/{conversationId}/messages
//
// Everything under /users and /messages requires a bearer token. The REST
// layer is deliberately thin: real-time delivery happens over the socket hub,
// and the API pushes friendRequest, friendAccepted and conversationUpdated
// events to personal rooms through the Notifier so connected clients learn
// about out-of-band changes.
package api
