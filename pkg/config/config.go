// Package config holds dh's credential and deployment configuration. The
// source of truth is the workspace's .env files; DEVHAND_* environment
// variables override individual values, and an optional devhand.yaml can
// re-point the workspace directories.
package config

import (
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/dskarbrevik/devhand/pkg/project"
	"github.com/pkg/errors"
)

// Frontend .env keys. These are the NEXT_PUBLIC_* values Vercel needs at
// build time; nothing secret goes in the frontend file.
const (
	KeySupabaseURL = "NEXT_PUBLIC_SUPABASE_URL"
	KeySupabaseKey = "NEXT_PUBLIC_SUPABASE_KEY"
	KeyAPIURL      = "NEXT_PUBLIC_API_URL"
	KeyVercelURL   = "NEXT_PUBLIC_VERCEL_URL"
)

// Backend .env keys, used only by the CLI and the backend service.
const (
	KeyBackendSupabaseURL = "SUPABASE_URL"
	KeySecretKey          = "SUPABASE_SECRET_KEY"
	KeyDBPassword         = "SUPABASE_DB_PASSWORD"
	KeyAccessToken        = "SUPABASE_ACCESS_TOKEN"
	KeyProjectRef         = "SUPABASE_PROJECT_REF"
)

type (
	// DB contains the hosted platform credentials.
	DB struct {
		URL         string `env:"DEVHAND_SUPABASE_URL"`
		PublicKey   string `env:"DEVHAND_SUPABASE_PUBLIC_KEY"`
		SecretKey   string `env:"DEVHAND_SUPABASE_SECRET_KEY"`
		Password    string `env:"DEVHAND_SUPABASE_DB_PASSWORD"`
		AccessToken string `env:"DEVHAND_SUPABASE_ACCESS_TOKEN"`
		ProjectRef  string `env:"DEVHAND_SUPABASE_PROJECT_REF"`
	}

	// Deployment contains the deployed service URLs.
	Deployment struct {
		APIURL    string `env:"DEVHAND_API_URL"`
		VercelURL string `env:"DEVHAND_VERCEL_URL"`
	}

	// Config is the full dh configuration.
	Config struct {
		DB         DB
		Deployment Deployment
	}
)

// Load reads configuration from the workspace .env files, then applies any
// DEVHAND_* environment overrides on top.
func Load(ws *project.Workspace) (*Config, error) {
	cfg := &Config{}

	if ws.HasFrontend() {
		f, err := LoadEnvFile(filepath.Join(ws.Frontend, ".env"))
		if err != nil {
			return nil, err
		}

		cfg.DB.URL = f.Get(KeySupabaseURL)
		cfg.DB.PublicKey = f.Get(KeySupabaseKey)
		cfg.Deployment.APIURL = f.Get(KeyAPIURL)
		cfg.Deployment.VercelURL = f.Get(KeyVercelURL)
	}

	if ws.HasBackend() {
		b, err := LoadEnvFile(filepath.Join(ws.Backend, ".env"))
		if err != nil {
			return nil, err
		}

		if cfg.DB.URL == "" {
			cfg.DB.URL = b.Get(KeyBackendSupabaseURL)
		}
		cfg.DB.SecretKey = b.Get(KeySecretKey)
		cfg.DB.Password = b.Get(KeyDBPassword)
		cfg.DB.AccessToken = b.Get(KeyAccessToken)
		cfg.DB.ProjectRef = b.Get(KeyProjectRef)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment overrides")
	}

	return cfg, nil
}

// SaveFrontendEnv writes the public configuration into the frontend's .env,
// preserving any unrelated keys already in the file.
func SaveFrontendEnv(dir string, cfg *Config) error {
	path := filepath.Join(dir, ".env")
	f, err := LoadEnvFile(path)
	if err != nil {
		return err
	}

	f.Set(KeySupabaseURL, cfg.DB.URL)
	f.Set(KeySupabaseKey, cfg.DB.PublicKey)
	if cfg.Deployment.APIURL != "" {
		f.Set(KeyAPIURL, cfg.Deployment.APIURL)
	}
	if cfg.Deployment.VercelURL != "" {
		f.Set(KeyVercelURL, cfg.Deployment.VercelURL)
	}

	return f.WriteFile(path)
}

// SaveBackendEnv writes the secret configuration into the backend's .env,
// preserving any unrelated keys already in the file.
func SaveBackendEnv(dir string, cfg *Config) error {
	path := filepath.Join(dir, ".env")
	f, err := LoadEnvFile(path)
	if err != nil {
		return err
	}

	f.Set(KeyBackendSupabaseURL, cfg.DB.URL)
	f.Set(KeySecretKey, cfg.DB.SecretKey)
	f.Set(KeyDBPassword, cfg.DB.Password)
	f.Set(KeyAccessToken, cfg.DB.AccessToken)
	if cfg.DB.ProjectRef != "" {
		f.Set(KeyProjectRef, cfg.DB.ProjectRef)
	}

	return f.WriteFile(path)
}
