package stratz

import (
	"context"
	"errors"
)

const playerMatchesQuery = `
query PlayerMatches($steamAccountId: Long!, $take: Int!) {
  player(steamAccountId: $steamAccountId) {
    matches(request: { take: $take }) {
      id
      didRadiantWin
      durationSeconds
      startDateTime
      players(steamAccountId: $steamAccountId) {
        steamAccountId
        heroId
        isRadiant
        isVictory
        kills
        deaths
        assists
        goldPerMinute
        experiencePerMinute
        numLastHits
        numDenies
        playbackData {
          killEvents { time }
        }
      }
    }
  }
}`

const playerSummaryQuery = `
query PlayerSummary($steamAccountId: Long!) {
  player(steamAccountId: $steamAccountId) {
    steamAccount { id name seasonRank rank }
    matchCount
    winCount
  }
}`

const playerFeatsQuery = `
query PlayerFeats($steamAccountId: Long!, $take: Int!) {
  player(steamAccountId: $steamAccountId) {
    feats(take: $take) { type value heroId matchId }
  }
}`

const liveMatchQuery = `
query LiveMatch($steamAccountId: Long!) {
  player(steamAccountId: $steamAccountId) {
    liveMatch {
      matchId
      gameTime
      players { steamAccountId heroId isRadiant }
    }
  }
}`

const heroesQuery = `
query Heroes {
  constants {
    heroes { id displayName }
  }
}`

// PlayerMatches fetches the most recent matches for a native account id.
// A missing player yields an empty list, not an error.
func (c *Client) PlayerMatches(ctx context.Context, accountID int64, take int) ([]MatchPayload, error) {
	var out struct {
		Player *struct {
			Matches []MatchPayload `json:"matches"`
		} `json:"player"`
	}
	err := c.query(ctx, playerMatchesQuery, vars(accountID, take), &out)
	if errors.Is(err, ErrNotFound) || (err == nil && out.Player == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Player.Matches, nil
}

// PlayerSummary fetches profile totals. Nil result means unknown account.
func (c *Client) PlayerSummary(ctx context.Context, accountID int64) (*PlayerPayload, error) {
	var out struct {
		Player *PlayerPayload `json:"player"`
	}
	err := c.query(ctx, playerSummaryQuery, vars(accountID, 0), &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Player, nil
}

// PlayerFeats fetches recent achievement records. The feats and matches
// queries are independent; callers join them by match id.
func (c *Client) PlayerFeats(ctx context.Context, accountID int64, take int) ([]FeatPayload, error) {
	var out struct {
		Player *struct {
			Feats []FeatPayload `json:"feats"`
		} `json:"player"`
	}
	err := c.query(ctx, playerFeatsQuery, vars(accountID, take), &out)
	if errors.Is(err, ErrNotFound) || (err == nil && out.Player == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Player.Feats, nil
}

// LiveMatch fetches the match the account is currently in, nil when idle.
func (c *Client) LiveMatch(ctx context.Context, accountID int64) (*LiveMatchPayload, error) {
	var out struct {
		Player *struct {
			LiveMatch *LiveMatchPayload `json:"liveMatch"`
		} `json:"player"`
	}
	err := c.query(ctx, liveMatchQuery, vars(accountID, 0), &out)
	if errors.Is(err, ErrNotFound) || (err == nil && out.Player == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Player.LiveMatch, nil
}

// Heroes fetches the hero id to display name table.
func (c *Client) Heroes(ctx context.Context) ([]HeroPayload, error) {
	var out struct {
		Constants *struct {
			Heroes []HeroPayload `json:"heroes"`
		} `json:"constants"`
	}
	err := c.query(ctx, heroesQuery, nil, &out)
	if errors.Is(err, ErrNotFound) || (err == nil && out.Constants == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Constants.Heroes, nil
}

func vars(accountID int64, take int) map[string]any {
	v := map[string]any{"steamAccountId": accountID}
	if take > 0 {
		v["take"] = take
	}
	return v
}
