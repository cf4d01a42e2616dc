package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rickgao/chatlink/internal/model"
)

// GetUserInfo returns the signed-in user's profile.
func (c *Client) GetUserInfo(ctx context.Context) (*model.UserInfo, error) {
	info, err := get[model.UserInfo](ctx, c, "/app/info", nil)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUserInfoByID returns another user's public profile.
func (c *Client) GetUserInfoByID(ctx context.Context, id int64) (*model.UserInfo, error) {
	query := url.Values{}
	query.Set("id", strconv.FormatInt(id, 10))

	info, err := get[model.UserInfo](ctx, c, "/app/getInfo", query)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
