package catalog

import (
	"context"
	"fmt"
	"time"
)

// Static is an in-memory Provider.
type Static struct {
	MovieList      []Movie
	SeriesList     []Series
	SeasonList     []Season
	EpisodeList    []Episode
	CollectionList []Collection
	UserList       []User
	Libraries      map[string]UserLibrary
}

var _ Provider = (*Static)(nil)

func (p *Static) Movies(context.Context) ([]Movie, error)           { return p.MovieList, nil }
func (p *Static) Series(context.Context) ([]Series, error)          { return p.SeriesList, nil }
func (p *Static) Seasons(context.Context) ([]Season, error)         { return p.SeasonList, nil }
func (p *Static) Episodes(context.Context) ([]Episode, error)       { return p.EpisodeList, nil }
func (p *Static) Collections(context.Context) ([]Collection, error) { return p.CollectionList, nil }
func (p *Static) Users(context.Context) ([]User, error)             { return p.UserList, nil }

func (p *Static) UserLibrary(_ context.Context, userID string) (UserLibrary, error) {
	lib, ok := p.Libraries[userID]
	if !ok {
		return UserLibrary{}, fmt.Errorf("unknown user %q", userID)
	}
	return lib, nil
}

// ShowAll makes every item visible to every user, keeping existing watch state.
func (p *Static) ShowAll() {
	if p.Libraries == nil {
		p.Libraries = make(map[string]UserLibrary)
	}
	for _, u := range p.UserList {
		lib := p.Libraries[u.ID]
		if lib.Visible == nil {
			lib.Visible = make(map[string]bool)
		}
		if lib.States == nil {
			lib.States = make(map[string]WatchState)
		}
		for _, m := range p.MovieList {
			lib.Visible[m.ID] = true
		}
		for _, s := range p.SeriesList {
			lib.Visible[s.ID] = true
		}
		for _, e := range p.EpisodeList {
			lib.Visible[e.ID] = true
		}
		for _, c := range p.CollectionList {
			lib.Visible[c.ID] = true
		}
		p.Libraries[u.ID] = lib
	}
}

// MarkPlayed records a play of item id by userID. A nil at leaves the
// last-played date unknown.
func (p *Static) MarkPlayed(userID, id string, at *time.Time) {
	if p.Libraries == nil {
		p.Libraries = make(map[string]UserLibrary)
	}
	lib := p.Libraries[userID]
	if lib.States == nil {
		lib.States = make(map[string]WatchState)
	}
	lib.States[id] = WatchState{Played: true, LastPlayedAt: at}
	p.Libraries[userID] = lib
}
