package stratz

import "encoding/json"

// GraphQL envelope. The API answers every well-formed request with 200 and
// either data or a field-level errors list.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Raw payload shapes. Optional nested structures are pointers so that
// partially populated responses decode without loss; the mapper treats nil
// as absent.

type MatchPayload struct {
	ID              int64                `json:"id"`
	DidRadiantWin   *bool                `json:"didRadiantWin"`
	DurationSeconds int                  `json:"durationSeconds"`
	StartDateTime   int64                `json:"startDateTime"`
	Players         []MatchPlayerPayload `json:"players"`
}

type MatchPlayerPayload struct {
	SteamAccountID      int64            `json:"steamAccountId"`
	HeroID              int              `json:"heroId"`
	IsRadiant           *bool            `json:"isRadiant"`
	IsVictory           *bool            `json:"isVictory"`
	Kills               int              `json:"kills"`
	Deaths              int              `json:"deaths"`
	Assists             int              `json:"assists"`
	GoldPerMinute       int              `json:"goldPerMinute"`
	ExperiencePerMinute int              `json:"experiencePerMinute"`
	NumLastHits         int              `json:"numLastHits"`
	NumDenies           int              `json:"numDenies"`
	PlaybackData        *PlaybackPayload `json:"playbackData"`
}

type PlaybackPayload struct {
	KillEvents []KillEventPayload `json:"killEvents"`
}

type KillEventPayload struct {
	Time int64 `json:"time"`
}

type PlayerPayload struct {
	SteamAccount *SteamAccountPayload `json:"steamAccount"`
	MatchCount   int                  `json:"matchCount"`
	WinCount     int                  `json:"winCount"`
}

type SteamAccountPayload struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SeasonRank *int   `json:"seasonRank"`
	Rank       *int   `json:"rank"`
}

// FeatPayload is one achievement row from the feats query. Type arrives as
// a string or a small integer depending on the upstream data generation;
// it is kept raw here and normalized by the mapper.
type FeatPayload struct {
	Type    any   `json:"type"`
	Value   int   `json:"value"`
	HeroID  int   `json:"heroId"`
	MatchID int64 `json:"matchId"`
}

type LiveMatchPayload struct {
	MatchID  int64                   `json:"matchId"`
	GameTime int                     `json:"gameTime"`
	Players  []LiveMatchPlayerPayload `json:"players"`
}

type LiveMatchPlayerPayload struct {
	SteamAccountID int64 `json:"steamAccountId"`
	HeroID         int   `json:"heroId"`
	IsRadiant      *bool `json:"isRadiant"`
}

type HeroPayload struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}
