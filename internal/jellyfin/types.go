package jellyfin

import "time"

// SystemInfo from GET /System/Info.
type SystemInfo struct {
	ServerName      string `json:"ServerName"`
	Version         string `json:"Version"`
	ID              string `json:"Id"`
	OperatingSystem string `json:"OperatingSystem"`
	ProductName     string `json:"ProductName,omitempty"`
}

// PublicSystemInfo from GET /System/Info/Public.
type PublicSystemInfo struct {
	ServerName   string `json:"ServerName"`
	Version      string `json:"Version"`
	ID           string `json:"Id"`
	LocalAddress string `json:"LocalAddress"`
}

// VirtualFolder from GET /Library/VirtualFolders.
type VirtualFolder struct {
	Name           string   `json:"Name"`
	Locations      []string `json:"Locations"`
	CollectionType string   `json:"CollectionType"`
	ItemID         string   `json:"ItemId"`
}

// User from GET /Users.
type User struct {
	ID     string      `json:"Id"`
	Name   string      `json:"Name"`
	Policy *UserPolicy `json:"Policy,omitempty"`
}

type UserPolicy struct {
	IsAdministrator    bool `json:"IsAdministrator"`
	IsDisabled         bool `json:"IsDisabled"`
	EnableRemoteAccess bool `json:"EnableRemoteAccess"`
}

// NameID is how the server references studios.
type NameID struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

type MediaStream struct {
	Type         string `json:"Type"`
	Codec        string `json:"Codec"`
	Width        *int   `json:"Width,omitempty"`
	DisplayTitle string `json:"DisplayTitle"`
}

type MediaSource struct {
	ID       string `json:"Id"`
	Path     string `json:"Path"`
	Bitrate  *int64 `json:"Bitrate,omitempty"`
	Size     *int64 `json:"Size,omitempty"`
	Protocol string `json:"Protocol"`
}

// UserItemData is the watch state returned with EnableUserData.
type UserItemData struct {
	Played         bool       `json:"Played"`
	PlayCount      int        `json:"PlayCount"`
	LastPlayedDate *time.Time `json:"LastPlayedDate,omitempty"`
}

// Item from GET /Items and GET /Users/{id}/Items.
type Item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	SortName          string            `json:"SortName"`
	Path              string            `json:"Path"`
	Type              string            `json:"Type"`
	LocationType      string            `json:"LocationType"`
	Status            string            `json:"Status,omitempty"`
	ProductionYear    int               `json:"ProductionYear"`
	PremiereDate      *time.Time        `json:"PremiereDate,omitempty"`
	DateCreated       *time.Time        `json:"DateCreated,omitempty"`
	RunTimeTicks      *int64            `json:"RunTimeTicks,omitempty"`
	CommunityRating   *float64          `json:"CommunityRating,omitempty"`
	Genres            []string          `json:"Genres"`
	Studios           []NameID          `json:"Studios"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	ParentID          string            `json:"ParentId"`
	SeriesID          string            `json:"SeriesId,omitempty"`
	SeriesName        string            `json:"SeriesName,omitempty"`
	SeasonID          string            `json:"SeasonId,omitempty"`
	IndexNumber       *int              `json:"IndexNumber,omitempty"`
	IndexNumberEnd    *int              `json:"IndexNumberEnd,omitempty"`
	ParentIndexNumber *int              `json:"ParentIndexNumber,omitempty"`
	MediaStreams      []MediaStream     `json:"MediaStreams"`
	MediaSources      []MediaSource     `json:"MediaSources"`
	UserData          *UserItemData     `json:"UserData,omitempty"`
}

// ItemsResponse from GET /Items.
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}
