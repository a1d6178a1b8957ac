package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/steamlink/steamlink/internal/config"
	log "github.com/sirupsen/logrus"
)

// DoShowProfile prints the stored profile for steamID as JSON, or the first
// stored profile when steamID is empty.
func DoShowProfile(cfg *config.Config, steamID string, options *LoginOptions) {
	if err := showProfile(context.Background(), cfg, steamID, options); err != nil {
		log.Errorf("failed to read profile: %v", err)
	}
}

// DoDeleteProfile removes the profile whose row id is userID.
func DoDeleteProfile(cfg *config.Config, userID string, options *LoginOptions) {
	if err := deleteProfile(context.Background(), cfg, userID, options); err != nil {
		log.Errorf("failed to delete profile: %v", err)
	}
}

func showProfile(ctx context.Context, cfg *config.Config, steamID string, options *LoginOptions) error {
	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	profile, err := svc.Profile(ctx, strings.TrimSpace(steamID))
	if err != nil {
		return err
	}
	if profile == nil {
		fmt.Fprintln(options.out(), "No profile stored")
		return nil
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(options.out(), string(data))
	return nil
}

func deleteProfile(ctx context.Context, cfg *config.Config, rawUserID string, options *LoginOptions) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(rawUserID), 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user id %q", rawUserID)
	}
	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	deleted, err := svc.DeleteProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(options.out(), "No profile with id %d\n", userID)
		return nil
	}
	fmt.Fprintf(options.out(), "Profile %d deleted\n", userID)
	return nil
}
