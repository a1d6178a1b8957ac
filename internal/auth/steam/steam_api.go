package steam

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/steamlink/steamlink/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// DefaultAPIBase is the root of the Steam Web API.
	DefaultAPIBase = "https://api.steampowered.com"

	playerSummariesPath = "/ISteamUser/GetPlayerSummaries/v2/"
)

// ProfileClient fetches player summaries from the Steam Web API.
type ProfileClient struct {
	baseURL string
	client  *resty.Client
}

// NewProfileClient creates a client for the Web API rooted at baseURL.
// A zero timeout leaves the resty default in place.
func NewProfileClient(baseURL string, timeout time.Duration) *ProfileClient {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return NewProfileClientWithResty(baseURL, client)
}

// NewProfileClientWithResty creates a client that issues requests through client.
func NewProfileClientWithResty(baseURL string, client *resty.Client) *ProfileClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if client == nil {
		client = resty.New()
	}
	return &ProfileClient{baseURL: baseURL, client: client}
}

// FetchProfile returns the summary for steamID authenticated with apiKey.
//
// A non-2xx answer or an empty player list is reported as (nil, nil): the
// profile simply was not found. A transport failure returns nil together with
// an ErrNetworkFailure. Exactly one request is made; there is no retry.
func (c *ProfileClient) FetchProfile(ctx context.Context, apiKey, steamID string) (*Profile, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", apiKey).
		SetQueryParam("steamids", steamID).
		Get(c.baseURL + playerSummariesPath)
	if err != nil {
		log.Errorf("steam api: profile fetch error: %v", util.MaskSensitiveError(err))
		return nil, NewAuthenticationError(ErrNetworkFailure, util.MaskSensitiveError(err))
	}
	log.Debugf("steam api: GET %s -> %d", util.MaskSensitiveURL(resp.Request.URL), resp.StatusCode())

	if !resp.IsSuccess() {
		log.Errorf("steam api: profile fetch failed: %s", resp.Status())
		return nil, nil
	}

	players := gjson.GetBytes(resp.Body(), "response.players")
	if !players.IsArray() || len(players.Array()) == 0 {
		log.Warnf("steam api: no player data returned for %s", steamID)
		return nil, nil
	}
	profile := profileFromJSON(players.Array()[0])
	if profile.SteamID64 == "" {
		log.Warnf("steam api: player entry for %s has no steamid", steamID)
		return nil, nil
	}
	return profile, nil
}

func profileFromJSON(player gjson.Result) *Profile {
	return &Profile{
		SteamID64:      player.Get("steamid").String(),
		PersonaName:    player.Get("personaname").String(),
		AvatarFull:     player.Get("avatarfull").String(),
		AvatarMedium:   player.Get("avatarmedium").String(),
		Avatar:         player.Get("avatar").String(),
		ProfileURL:     player.Get("profileurl").String(),
		RealName:       player.Get("realname").String(),
		Visibility:     int(player.Get("communityvisibilitystate").Int()),
		TimeCreated:    player.Get("timecreated").Int(),
		LastLogoff:     player.Get("lastlogoff").Int(),
		LocCountryCode: player.Get("loccountrycode").String(),
		LocStateCode:   player.Get("locstatecode").String(),
		LocCityID:      player.Get("loccityid").Int(),
	}
}
