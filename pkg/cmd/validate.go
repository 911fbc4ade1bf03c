package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dskarbrevik/devhand/pkg/config"
	"github.com/dskarbrevik/devhand/pkg/supabase"
	"github.com/dskarbrevik/devhand/pkg/toolchain"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

const healthCheckTimeout = 10 * time.Second

// validate creates the validate command for checking environment health.
func validate() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check if environment is properly configured",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "deploy",
				Usage: "Validate deployment configuration (backend, platform, frontend)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireWorkspace(currentWorkspace); err != nil {
				return err
			}

			if cmd.Bool("deploy") {
				return validateDeployment(ctx, cmd)
			}

			return validateLocal(ctx, cmd)
		},
	}
}

func validateLocal(ctx context.Context, cmd *cli.Command) error {
	fmt.Fprintln(out(cmd), "\n🔍 Validating development environment...")

	ws := currentWorkspace
	var issues []string

	if ws.HasFrontend() {
		fmt.Fprintln(out(cmd), "\nFrontend:")
		issues = append(issues, checkTool(ctx, cmd, "node")...)
		issues = append(issues, checkTool(ctx, cmd, "npm")...)
		issues = append(issues, checkPath(cmd, filepath.Join(ws.Frontend, ".env"), ".env", "run 'dh setup'")...)
		issues = append(issues, checkPath(cmd, filepath.Join(ws.Frontend, "node_modules"), "node_modules", "run 'dh install'")...)
		issues = append(issues, checkPath(cmd, filepath.Join(ws.Frontend, "package.json"), "package.json", "")...)
	}

	if ws.HasBackend() {
		fmt.Fprintln(out(cmd), "\nBackend:")
		issues = append(issues, checkTool(ctx, cmd, "python3")...)
		issues = append(issues, checkTool(ctx, cmd, "uv")...)
		issues = append(issues, checkPath(cmd, filepath.Join(ws.Backend, ".venv"), ".venv", "run 'dh install'")...)
		issues = append(issues, checkPath(cmd, filepath.Join(ws.Backend, "pyproject.toml"), "pyproject.toml", "")...)
	}

	fmt.Fprintln(out(cmd), "\nOptional Tools:")
	if version := toolchain.ToolVersion(ctx, "docker", "--version"); version != "" {
		success(cmd, "Docker: %s", version)
	} else {
		warn(cmd, "Docker not installed (optional)")
	}

	fmt.Fprintln(out(cmd), "\nDatabase Configuration:")
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	issues = append(issues, checkDatabase(ctx, cmd, cfg)...)

	fmt.Fprintln(out(cmd))
	if len(issues) > 0 {
		fmt.Fprintf(out(cmd), "⚠️  Found %d issue(s):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(out(cmd), "  - %s\n", issue)
		}
		fmt.Fprintln(out(cmd), "\nRun 'dh setup' to fix configuration issues")
		return errors.Errorf("found %d issue(s)", len(issues))
	}

	fmt.Fprintln(out(cmd), "✨ All checks passed!")
	return nil
}

func checkTool(ctx context.Context, cmd *cli.Command, name string) []string {
	if version := toolchain.ToolVersion(ctx, name, "--version"); version != "" {
		success(cmd, "%s: %s", name, version)
		return nil
	}

	fail(cmd, "%s not installed", name)
	return []string{name + " missing"}
}

func checkPath(cmd *cli.Command, path, label, hint string) []string {
	if _, err := os.Stat(path); err == nil {
		success(cmd, "%s exists", label)
		return nil
	}

	if hint != "" {
		warn(cmd, "%s not found - %s", label, hint)
	} else {
		fail(cmd, "%s not found", label)
	}
	return []string{label + " missing"}
}

func checkDatabase(ctx context.Context, cmd *cli.Command, cfg *config.Config) []string {
	if cfg.DB.URL == "" {
		warn(cmd, "Database not configured - run 'dh setup'")
		return []string{"database not configured"}
	}

	success(cmd, "Database URL configured: %s", cfg.DB.URL)

	if cfg.DB.SecretKey == "" {
		warn(cmd, "Secret key not configured")
		return []string{"database credentials incomplete"}
	}

	client, err := supabase.NewClient(cfg.DB.URL, supabase.ClientOptions{
		SecretKey:  cfg.DB.SecretKey,
		ProjectRef: cfg.DB.ProjectRef,
	})
	if err != nil {
		fail(cmd, "Database client error: %v", err)
		return []string{"database connection error"}
	}

	if err := client.TestConnection(ctx); err != nil {
		fail(cmd, "Database connection failed: %v", err)
		info(cmd, "Make sure you're using the secret key, not the public key")
		return []string{"cannot connect to database"}
	}

	success(cmd, "Database connection successful")
	return nil
}

func validateDeployment(ctx context.Context, cmd *cli.Command) error {
	fmt.Fprintln(out(cmd), "\n🚀 Validating deployment configuration...")

	ws := currentWorkspace
	var issues []string

	// Step 0: local setup must exist before deployment can be judged
	fmt.Fprintln(out(cmd), "\nStep 0: Local Environment")
	if !ws.HasFrontend() {
		return errors.New("no frontend repo detected; cannot validate deployment")
	}

	envPath := filepath.Join(ws.Frontend, ".env")
	if _, err := os.Stat(envPath); err != nil {
		fail(cmd, "Local environment not configured")
		return errors.New("run 'dh setup' first to configure the local environment")
	}
	success(cmd, "Local environment configured")

	envVars, err := config.LoadEnvFile(envPath)
	if err != nil {
		return err
	}

	// Step 1: backend reachability
	fmt.Fprintln(out(cmd), "\nStep 1: Backend API")
	issues = append(issues, checkBackendDeployment(ctx, cmd, envVars.Get(config.KeyAPIURL))...)

	// Step 2: platform project
	fmt.Fprintln(out(cmd), "\nStep 2: Database Platform")
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}
	issues = append(issues, checkPlatformDeployment(ctx, cmd, envVars, cfg)...)

	// Step 3: frontend deployment prerequisites
	fmt.Fprintln(out(cmd), "\nStep 3: Frontend Deployment")
	issues = append(issues, checkFrontendDeployment(cmd, envVars)...)

	fmt.Fprintln(out(cmd))
	if len(issues) > 0 {
		fmt.Fprintf(out(cmd), "⚠️  Found %d deployment issue(s):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(out(cmd), "  - %s\n", issue)
		}
		return errors.Errorf("found %d deployment issue(s)", len(issues))
	}

	fmt.Fprintln(out(cmd), "✨ All deployment checks passed!")
	fmt.Fprintln(out(cmd), "\nNext steps:")
	fmt.Fprintln(out(cmd), "  1. Deploy to Vercel if you haven't already")
	fmt.Fprintln(out(cmd), "  2. Add your Vercel URL to the platform's redirect URLs")
	fmt.Fprintln(out(cmd), "  3. Test the full authentication flow in production")
	return nil
}

func checkBackendDeployment(ctx context.Context, cmd *cli.Command, backendURL string) []string {
	if backendURL == "" {
		fail(cmd, "Backend API URL not configured in .env")
		return []string{"backend API URL missing"}
	}

	if strings.Contains(backendURL, "localhost") || strings.Contains(backendURL, "127.0.0.1") {
		warn(cmd, "Backend URL is localhost: %s", backendURL)
		warn(cmd, "This looks like local development, not production")
		return []string{"backend not deployed - still using localhost"}
	}

	success(cmd, "Backend URL configured: %s", backendURL)

	status, body, err := fetchHealth(ctx, backendURL)
	if err != nil {
		fail(cmd, "Backend API is not accessible: %v", err)
		return []string{"backend API deployment not accessible"}
	}

	if status != http.StatusOK {
		fail(cmd, "Backend API returned HTTP %d", status)
		return []string{"backend API deployment not accessible"}
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Status == "success" {
		success(cmd, "Backend API is accessible and responding")
	} else {
		success(cmd, "Backend is accessible (unrecognized response)")
	}

	return nil
}

func fetchHealth(ctx context.Context, url string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, body, nil
}

func checkPlatformDeployment(ctx context.Context, cmd *cli.Command, envVars *config.EnvFile, cfg *config.Config) []string {
	var issues []string

	platformURL := envVars.Get(config.KeySupabaseURL)
	if platformURL == "" {
		fail(cmd, "Platform URL not configured")
		issues = append(issues, "platform URL missing")
	} else {
		success(cmd, "Platform URL configured: %s", platformURL)
		if !strings.HasPrefix(platformURL, "https://") || !strings.Contains(platformURL, ".supabase.co") {
			warn(cmd, "Platform URL format looks incorrect")
			issues = append(issues, "platform URL format invalid")
		}
	}

	if envVars.Get(config.KeySupabaseKey) == "" {
		fail(cmd, "Platform anon key not configured")
		issues = append(issues, "platform anon key missing")
	} else {
		success(cmd, "Platform anon key configured")
	}

	if cfg.DB.URL == "" || cfg.DB.SecretKey == "" {
		warn(cmd, "Platform credentials incomplete - cannot test database")
		return append(issues, "platform credentials missing")
	}

	client, err := supabase.NewClient(cfg.DB.URL, supabase.ClientOptions{
		SecretKey:  cfg.DB.SecretKey,
		ProjectRef: cfg.DB.ProjectRef,
	})
	if err != nil {
		fail(cmd, "Platform connection error: %v", err)
		return append(issues, "platform connection failed")
	}

	if err := client.TestConnection(ctx); err != nil {
		fail(cmd, "Platform database connection failed: %v", err)
		return append(issues, "cannot connect to platform")
	}
	success(cmd, "Platform database connection successful")

	exists, err := client.TableExists(ctx, "allowed_users")
	switch {
	case err != nil:
		fail(cmd, "Could not check allowed_users table: %v", err)
		issues = append(issues, "database not set up")
	case !exists:
		fail(cmd, "allowed_users table not found")
		fail(cmd, "Run 'dh db migrate' to create the table")
		issues = append(issues, "database not set up")
	default:
		success(cmd, "allowed_users table exists")
	}

	return issues
}

func checkFrontendDeployment(cmd *cli.Command, envVars *config.EnvFile) []string {
	var issues []string

	required := []string{config.KeySupabaseURL, config.KeySupabaseKey, config.KeyAPIURL}
	var missing []string
	for _, key := range required {
		if envVars.Get(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		fail(cmd, "Missing environment variables: %s", strings.Join(missing, ", "))
		issues = append(issues, "environment variables incomplete")
	} else {
		success(cmd, "All required environment variables configured")
	}

	ws := currentWorkspace
	if _, err := os.Stat(filepath.Join(ws.Frontend, "package.json")); err == nil {
		success(cmd, "package.json exists (required for Vercel)")
	} else {
		fail(cmd, "package.json not found")
		issues = append(issues, "package.json missing")
	}

	return issues
}
