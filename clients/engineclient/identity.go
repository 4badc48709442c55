package engineclient

import (
	"context"
	"fmt"
)

// Users returns every user of the identity directory.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/identity/users", nil, &users); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// User returns one user.
func (c *Client) User(ctx context.Context, userID string) (User, error) {
	var u User
	if err := c.get(ctx, "/identity/users/"+escape(userID), nil, &u); err != nil {
		return User{}, fmt.Errorf("getting user %s: %w", userID, err)
	}
	return u, nil
}

// Groups returns every group of the identity directory.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.get(ctx, "/identity/groups", nil, &groups); err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}

// Group returns one group.
func (c *Client) Group(ctx context.Context, groupID string) (Group, error) {
	var g Group
	if err := c.get(ctx, "/identity/groups/"+escape(groupID), nil, &g); err != nil {
		return Group{}, fmt.Errorf("getting group %s: %w", groupID, err)
	}
	return g, nil
}

// UserGroups returns the ids of the groups a user belongs to.
func (c *Client) UserGroups(ctx context.Context, userID string) ([]string, error) {
	var groups []string
	if err := c.get(ctx, "/identity/users/"+escape(userID)+"/groups", nil, &groups); err != nil {
		return nil, fmt.Errorf("listing groups of user %s: %w", userID, err)
	}
	return groups, nil
}

// UsersInGroup returns the members of a group.
func (c *Client) UsersInGroup(ctx context.Context, groupID string) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/identity/groups/"+escape(groupID)+"/users", nil, &users); err != nil {
		return nil, fmt.Errorf("listing users of group %s: %w", groupID, err)
	}
	return users, nil
}
