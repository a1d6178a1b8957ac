// Package store persists the Steam Web API key and player profiles.
// SQLiteStore is the embedded default, PostgresStore serves shared deployments
// and KeyringCredentialStore keeps the key in the OS keychain instead.
package store

import (
	"database/sql"
	"time"

	"github.com/steamlink/steamlink/internal/auth/steam"
)

// profileColumns is the SELECT column list shared by the profile queries.
const profileColumns = `user_id, steam_id64, persona_name, avatar_full, avatar_medium, avatar,
	profile_url, real_name, visibility, time_created, last_logoff,
	loc_country_code, loc_state_code, loc_city_id, updated_at`

// Clock returns the current time; stores stamp updated_at with it.
type Clock func() time.Time

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProfile reads one users row. Nullable columns come back as zero values.
func scanProfile(row rowScanner) (*steam.Profile, error) {
	var (
		p           steam.Profile
		personaName sql.NullString
		avatarFull  sql.NullString
		avatarMed   sql.NullString
		avatar      sql.NullString
		profileURL  sql.NullString
		realName    sql.NullString
		visibility  sql.NullInt64
		timeCreated sql.NullInt64
		lastLogoff  sql.NullInt64
		country     sql.NullString
		state       sql.NullString
		cityID      sql.NullInt64
		updatedAt   sql.NullInt64
	)
	if err := row.Scan(
		&p.UserID, &p.SteamID64, &personaName, &avatarFull, &avatarMed, &avatar,
		&profileURL, &realName, &visibility, &timeCreated, &lastLogoff,
		&country, &state, &cityID, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.PersonaName = personaName.String
	p.AvatarFull = avatarFull.String
	p.AvatarMedium = avatarMed.String
	p.Avatar = avatar.String
	p.ProfileURL = profileURL.String
	p.RealName = realName.String
	p.Visibility = int(visibility.Int64)
	p.TimeCreated = timeCreated.Int64
	p.LastLogoff = lastLogoff.Int64
	p.LocCountryCode = country.String
	p.LocStateCode = state.String
	p.LocCityID = cityID.Int64
	p.UpdatedAt = updatedAt.Int64
	return &p, nil
}

// profileArgs returns the upsert arguments in users column order, steam_id64 first.
// Empty optional fields are stored as NULL.
func profileArgs(p *steam.Profile, updatedAt int64) []any {
	return []any{
		p.SteamID64,
		nullString(p.PersonaName),
		nullString(p.AvatarFull),
		nullString(p.AvatarMedium),
		nullString(p.Avatar),
		nullString(p.ProfileURL),
		nullString(p.RealName),
		p.Visibility,
		nullInt(p.TimeCreated),
		nullInt(p.LastLogoff),
		nullString(p.LocCountryCode),
		nullString(p.LocStateCode),
		nullInt(p.LocCityID),
		updatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
