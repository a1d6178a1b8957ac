package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/steamlink/steamlink/internal/config"
	"github.com/steamlink/steamlink/internal/util"
	log "github.com/sirupsen/logrus"
)

// DoSetAPIKey stores key as the Steam Web API key.
func DoSetAPIKey(cfg *config.Config, key string, options *LoginOptions) {
	if err := setAPIKey(context.Background(), cfg, key, options); err != nil {
		log.Errorf("failed to save API key: %v", err)
		return
	}
}

// DoShowAPIKey prints the stored Steam Web API key with its middle masked.
func DoShowAPIKey(cfg *config.Config, options *LoginOptions) {
	if err := showAPIKey(context.Background(), cfg, options); err != nil {
		log.Errorf("failed to read API key: %v", err)
	}
}

// DoDeleteAPIKey removes the stored Steam Web API key.
func DoDeleteAPIKey(cfg *config.Config, options *LoginOptions) {
	if err := deleteAPIKey(context.Background(), cfg, options); err != nil {
		log.Errorf("failed to delete API key: %v", err)
	}
}

func setAPIKey(ctx context.Context, cfg *config.Config, key string, options *LoginOptions) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is empty")
	}
	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err = svc.SaveAPIKey(ctx, key); err != nil {
		return err
	}
	fmt.Fprintf(options.out(), "API key saved: %s\n", util.HideAPIKey(key))
	return nil
}

func showAPIKey(ctx context.Context, cfg *config.Config, options *LoginOptions) error {
	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	key, ok, err := svc.APIKey(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(options.out(), "No API key stored")
		return nil
	}
	fmt.Fprintf(options.out(), "API key: %s\n", util.HideAPIKey(key))
	return nil
}

func deleteAPIKey(ctx context.Context, cfg *config.Config, options *LoginOptions) error {
	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err = svc.DeleteAPIKey(ctx); err != nil {
		return err
	}
	fmt.Fprintln(options.out(), "API key deleted")
	return nil
}
