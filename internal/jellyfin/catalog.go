package jellyfin

import (
	"context"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/logging"
)

// Catalog adapts a Client to catalog.Provider.
type Catalog struct {
	client *Client
	logger *logging.Logger
}

var _ catalog.Provider = (*Catalog)(nil)

func NewCatalog(client *Client, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Catalog{client: client, logger: logger}
}

// ServerID identifies the server the catalog reads from.
func (c *Catalog) ServerID(ctx context.Context) (string, error) {
	info, err := c.client.GetSystemInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *Catalog) Movies(ctx context.Context) ([]catalog.Movie, error) {
	items, err := c.client.GetItems(ctx, ItemQuery{Types: []string{TypeMovie}, Fields: detailFields})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Movie, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.Movie{Media: toMedia(it)})
	}
	c.logger.Debug("jellyfin", "movies loaded", logging.F("count", len(out)))
	return out, nil
}

func (c *Catalog) Series(ctx context.Context) ([]catalog.Series, error) {
	items, err := c.client.GetItems(ctx, ItemQuery{Types: []string{TypeSeries}, Fields: detailFields})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Series, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.Series{
			ID:              it.ID,
			Name:            it.Name,
			SortName:        it.SortName,
			Status:          catalog.ParseSeriesStatus(it.Status),
			PremiereDate:    date(it.PremiereDate),
			ProductionYear:  it.ProductionYear,
			DateCreated:     deref(date(it.DateCreated)),
			CommunityRating: it.CommunityRating,
			Studios:         studios(it.Studios),
			Genres:          it.Genres,
			ProviderIDs:     it.ProviderIDs,
		})
	}
	c.logger.Debug("jellyfin", "series loaded", logging.F("count", len(out)))
	return out, nil
}

func (c *Catalog) Seasons(ctx context.Context) ([]catalog.Season, error) {
	items, err := c.client.GetItems(ctx, ItemQuery{Types: []string{TypeSeason}, Fields: []string{"ParentId"}})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Season, 0, len(items))
	for _, it := range items {
		seriesID := it.SeriesID
		if seriesID == "" {
			seriesID = it.ParentID
		}
		out = append(out, catalog.Season{
			ID:          it.ID,
			SeriesID:    seriesID,
			Name:        it.Name,
			IndexNumber: it.IndexNumber,
		})
	}
	return out, nil
}

func (c *Catalog) Episodes(ctx context.Context) ([]catalog.Episode, error) {
	items, err := c.client.GetItems(ctx, ItemQuery{Types: []string{TypeEpisode}, Fields: detailFields})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Episode, 0, len(items))
	for _, it := range items {
		out = append(out, toEpisode(it))
	}
	c.logger.Debug("jellyfin", "episodes loaded", logging.F("count", len(out)))
	return out, nil
}

func (c *Catalog) Collections(ctx context.Context) ([]catalog.Collection, error) {
	items, err := c.client.GetItems(ctx, ItemQuery{Types: []string{TypeBoxSet}})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Collection, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.Collection{ID: it.ID, Name: it.Name})
	}
	return out, nil
}

// Users returns every account. Active accounts have remote access and are
// not disabled.
func (c *Catalog) Users(ctx context.Context) ([]catalog.User, error) {
	users, err := c.client.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.User, 0, len(users))
	for _, u := range users {
		active := u.Policy != nil && u.Policy.EnableRemoteAccess && !u.Policy.IsDisabled
		out = append(out, catalog.User{ID: u.ID, Name: u.Name, Active: active})
	}
	return out, nil
}

func (c *Catalog) UserLibrary(ctx context.Context, userID string) (catalog.UserLibrary, error) {
	items, err := c.client.GetUserItems(ctx, userID, ItemQuery{
		Types:    []string{TypeMovie, TypeSeries, TypeEpisode, TypeBoxSet},
		UserData: true,
	})
	if err != nil {
		return catalog.UserLibrary{}, err
	}
	lib := catalog.UserLibrary{
		Visible: make(map[string]bool, len(items)),
		States:  make(map[string]catalog.WatchState),
	}
	for _, it := range items {
		lib.Visible[it.ID] = true
		if it.UserData == nil {
			continue
		}
		if it.UserData.Played || it.UserData.LastPlayedDate != nil {
			lib.States[it.ID] = catalog.WatchState{
				Played:       it.UserData.Played,
				LastPlayedAt: date(it.UserData.LastPlayedDate),
			}
		}
	}
	return lib, nil
}

func toMedia(it Item) catalog.Media {
	m := catalog.Media{
		ID:              it.ID,
		Name:            it.Name,
		SortName:        it.SortName,
		Path:            it.Path,
		PremiereDate:    date(it.PremiereDate),
		ProductionYear:  it.ProductionYear,
		DateCreated:     deref(date(it.DateCreated)),
		RunTimeTicks:    it.RunTimeTicks,
		CommunityRating: it.CommunityRating,
		Studios:         studios(it.Studios),
		Genres:          it.Genres,
		Virtual:         strings.EqualFold(it.LocationType, "Virtual"),
	}
	for _, src := range it.MediaSources {
		if src.Bitrate != nil {
			m.TotalBitrate = src.Bitrate
			break
		}
	}
	for _, s := range it.MediaStreams {
		m.Streams = append(m.Streams, catalog.MediaStream{
			Type:         catalog.StreamType(strings.ToLower(s.Type)),
			Codec:        s.Codec,
			Width:        s.Width,
			DisplayTitle: s.DisplayTitle,
		})
	}
	return m
}

func toEpisode(it Item) catalog.Episode {
	parent := it.SeasonID
	if parent == "" {
		parent = it.SeriesID
	}
	if parent == "" {
		parent = it.ParentID
	}
	return catalog.Episode{
		Media:          toMedia(it),
		ParentID:       parent,
		SeriesName:     it.SeriesName,
		SeasonNumber:   it.ParentIndexNumber,
		IndexNumber:    it.IndexNumber,
		IndexNumberEnd: it.IndexNumberEnd,
	}
}

func studios(in []NameID) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s.Name != "" {
			out = append(out, s.Name)
		}
	}
	return out
}

// date drops the zero dates the server uses for "unknown".
func date(t *time.Time) *time.Time {
	if t == nil || t.Year() <= 1 {
		return nil
	}
	return t
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
