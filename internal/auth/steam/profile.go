package steam

// Profile is a Steam player summary as stored locally.
// JSON tags follow the GetPlayerSummaries field names.
type Profile struct {
	// UserID is the local row id; zero until the profile has been stored.
	UserID         int64  `json:"user_id,omitempty"`
	SteamID64      string `json:"steamid"`
	PersonaName    string `json:"personaname"`
	AvatarFull     string `json:"avatarfull"`
	AvatarMedium   string `json:"avatarmedium"`
	Avatar         string `json:"avatar"`
	ProfileURL     string `json:"profileurl"`
	RealName       string `json:"realname"`
	Visibility     int    `json:"communityvisibilitystate"`
	TimeCreated    int64  `json:"timecreated"`
	LastLogoff     int64  `json:"lastlogoff"`
	LocCountryCode string `json:"loccountrycode"`
	LocStateCode   string `json:"locstatecode"`
	LocCityID      int64  `json:"loccityid"`
	// UpdatedAt is the unix time of the last local write.
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// IsPublic reports whether the community profile is visible to everyone.
func (p *Profile) IsPublic() bool {
	return p != nil && p.Visibility == 3
}
