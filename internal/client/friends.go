// ABOUTME: Friend relationship REST calls: list, request, accept, reject, remove
// ABOUTME: Pure request/response plumbing; real-time friend events arrive on the personal room

package client

import (
	"context"
	"net/http"
)

// FriendRequestInfo is one pending friend request addressed to a user.
type FriendRequestInfo struct {
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	CreatedAt string `json:"created_at"`
}

// Friends lists the user's friends.
func (c *Client) Friends(ctx context.Context, userID string) ([]UserInfo, error) {
	var friends []UserInfo
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+userID+"/friends", nil, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// FriendRequests lists pending requests addressed to the user.
func (c *Client) FriendRequests(ctx context.Context, userID string) ([]FriendRequestInfo, error) {
	var reqs []FriendRequestInfo
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+userID+"/friend-requests", nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// SendFriendRequestByEmail sends a friend request to the user owning the email.
func (c *Client) SendFriendRequestByEmail(ctx context.Context, userID, friendEmail string) error {
	return c.doJSON(ctx, http.MethodPost, "/users/friend-request/email",
		map[string]string{"userId": userID, "friendEmail": friendEmail}, nil)
}

// AcceptFriendRequest accepts a pending request from friendID.
func (c *Client) AcceptFriendRequest(ctx context.Context, userID, friendID string) error {
	return c.doJSON(ctx, http.MethodPost, "/users/friend-request/accept",
		map[string]string{"userId": userID, "friendId": friendID}, nil)
}

// RejectFriendRequest rejects a pending request from friendID.
func (c *Client) RejectFriendRequest(ctx context.Context, userID, friendID string) error {
	return c.doJSON(ctx, http.MethodPost, "/users/friend-request/reject",
		map[string]string{"userId": userID, "friendId": friendID}, nil)
}

// RemoveFriend deletes an existing friendship.
func (c *Client) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/"+userID+"/friends/"+friendID, nil, nil)
}
