package jellyfin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Item types requested from the server.
const (
	TypeMovie   = "Movie"
	TypeSeries  = "Series"
	TypeSeason  = "Season"
	TypeEpisode = "Episode"
	TypeBoxSet  = "BoxSet"
)

// detailFields are the optional fields the catalog needs on every item.
var detailFields = []string{
	"Path", "SortName", "Genres", "Studios", "DateCreated", "PremiereDate",
	"ProductionYear", "ProviderIds", "MediaStreams", "MediaSources", "ParentId",
	"CommunityRating", "Status",
}

// ItemQuery filters GetItems and GetUserItems.
type ItemQuery struct {
	Types  []string
	Fields []string
	// UserData requests per-user watch state. Only honoured for user queries.
	UserData bool
}

func (q ItemQuery) values() url.Values {
	v := url.Values{}
	v.Set("Recursive", "true")
	if len(q.Types) > 0 {
		v.Set("IncludeItemTypes", strings.Join(q.Types, ","))
	}
	if len(q.Fields) > 0 {
		v.Set("Fields", strings.Join(q.Fields, ","))
	}
	if q.UserData {
		v.Set("EnableUserData", "true")
	} else {
		v.Set("EnableUserData", "false")
	}
	v.Set("EnableImages", "false")
	v.Set("SortBy", "SortName")
	return v
}

// GetItems pages through every library item matching q.
func (c *Client) GetItems(ctx context.Context, q ItemQuery) ([]Item, error) {
	return c.paged(ctx, "/Items", q)
}

// GetUserItems pages through the items userID can see.
func (c *Client) GetUserItems(ctx context.Context, userID string, q ItemQuery) ([]Item, error) {
	return c.paged(ctx, "/Users/"+url.PathEscape(userID)+"/Items", q)
}

func (c *Client) paged(ctx context.Context, endpoint string, q ItemQuery) ([]Item, error) {
	query := q.values()
	query.Set("Limit", strconv.Itoa(c.pageSize))

	var items []Item
	for start := 0; ; {
		query.Set("StartIndex", strconv.Itoa(start))

		var resp ItemsResponse
		if err := c.get(ctx, endpoint, query, &resp); err != nil {
			return nil, fmt.Errorf("querying %s: %w", strings.Join(q.Types, ","), err)
		}
		items = append(items, resp.Items...)
		start += len(resp.Items)

		if len(resp.Items) < c.pageSize || start >= resp.TotalRecordCount {
			return items, nil
		}
	}
}
