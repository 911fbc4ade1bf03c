package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dskarbrevik/devhand/pkg/config"
	"github.com/dskarbrevik/devhand/pkg/toolchain"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// setup creates the setup command for one-time environment configuration.
//
// The command walks through five steps: workspace detection, tool checks,
// credential collection (persisted to the repos' .env files), dependency
// installation, and a .gitignore sanity check.
func setup() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "One-time setup of development environment",
		Description: `Guided setup for a new workspace.

Detects the frontend and backend repos, verifies the required tools are
installed, collects platform credentials into .env files, and installs
dependencies. Safe to re-run; existing .env values are offered as defaults
and unrelated keys are preserved.`,
		Action: runSetup,
	}
}

func runSetup(ctx context.Context, cmd *cli.Command) error {
	fmt.Fprintln(out(cmd), "\n🚀 Setting up development environment...")

	ws := currentWorkspace

	// Step 1: workspace detection
	step(cmd, 1, "Detecting project structure...")

	if ws.HasFrontend() {
		success(cmd, "Frontend detected: %s", ws.Frontend)
	}
	if ws.HasBackend() {
		success(cmd, "Backend detected: %s", ws.Backend)
	}

	if err := requireWorkspace(ws); err != nil {
		fail(cmd, "No projects detected in workspace")
		info(cmd, "Expected FE: package.json + next.config.ts")
		info(cmd, "Expected BE: pyproject.toml + main.py")
		return err
	}

	// Step 2: required tools
	step(cmd, 2, "Checking required tools...")
	if err := checkTools(ctx, cmd); err != nil {
		return err
	}

	// Step 3: credentials
	step(cmd, 3, "Configuring database credentials...")

	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	if promptConfirm(cmd, "Configure database credentials?", true) {
		if err := collectCredentials(cmd, cfg); err != nil {
			return err
		}

		if ws.HasFrontend() {
			if err := config.SaveFrontendEnv(ws.Frontend, cfg); err != nil {
				return err
			}
			success(cmd, "Configuration saved to %s", filepath.Join(ws.Frontend, ".env"))
		}

		if ws.HasBackend() {
			if err := config.SaveBackendEnv(ws.Backend, cfg); err != nil {
				return err
			}
			success(cmd, "Configuration saved to %s", filepath.Join(ws.Backend, ".env"))
		}
	}

	// Step 4: dependencies
	step(cmd, 4, "Installing dependencies...")
	installDependencies(ctx, cmd, false)

	// Step 5: gitignore
	step(cmd, 5, "Verifying .gitignore...")
	checkGitignore(cmd, "Frontend", ws.Frontend)
	checkGitignore(cmd, "Backend", ws.Backend)

	fmt.Fprintln(out(cmd), "\n✨ Setup complete!")
	fmt.Fprintln(out(cmd), "\nNext steps:")
	fmt.Fprintln(out(cmd), "  1. Run 'dh validate' to verify everything")
	fmt.Fprintln(out(cmd), "  2. Run 'dh db migrate' to initialize database tables")
	return nil
}

func checkTools(ctx context.Context, cmd *cli.Command) error {
	ws := currentWorkspace
	ok := true

	if ws.HasFrontend() {
		for _, tool := range []string{"node", "npm"} {
			if version := toolchain.ToolVersion(ctx, tool, "--version"); version != "" {
				success(cmd, "%s: %s", tool, version)
			} else {
				fail(cmd, "%s not installed (required for frontend)", tool)
				ok = false
			}
		}
	}

	if ws.HasBackend() {
		if version := toolchain.ToolVersion(ctx, "uv", "--version"); version != "" {
			success(cmd, "uv: %s", version)
		} else {
			fail(cmd, "uv not installed (required for backend)")
			info(cmd, "Install: curl -LsSf https://astral.sh/uv/install.sh | sh")
			ok = false
		}
	}

	if version := toolchain.ToolVersion(ctx, "docker", "--version"); version != "" {
		success(cmd, "Docker: %s", version)
	} else {
		warn(cmd, "Docker not found (optional, needed for containerization)")
	}

	if !ok {
		return errors.New("please install missing tools and run setup again")
	}

	return nil
}

func collectCredentials(cmd *cli.Command, cfg *config.Config) error {
	ws := currentWorkspace

	cfg.DB.URL = promptText(cmd, "Database URL (e.g., https://xxx.supabase.co)", cfg.DB.URL)

	info(cmd, "Find keys in: Dashboard > Settings > API")
	cfg.DB.PublicKey = promptText(cmd, "Public/Anon key (sb_publishable_* or anon JWT) - for Vercel", cfg.DB.PublicKey)

	info(cmd, "The following are for dh CLI operations only (not needed in Vercel):")
	cfg.DB.SecretKey = promptText(cmd, "Secret/Service role key (sb_secret_* or service_role JWT)", cfg.DB.SecretKey)
	cfg.DB.Password = promptText(cmd, "Database password - for migrations", cfg.DB.Password)
	cfg.DB.AccessToken = promptText(cmd, "Access token - for the management API", cfg.DB.AccessToken)

	if ws.HasBackend() {
		apiURL := cfg.Deployment.APIURL
		if apiURL == "" {
			apiURL = "http://localhost:8000"
		}
		cfg.Deployment.APIURL = promptText(cmd, "Backend API URL (for frontend, e.g., Railway URL)", apiURL)
	}

	if ws.HasFrontend() {
		info(cmd, "Deploy to Vercel first, then come back and update this:")
		cfg.Deployment.VercelURL = promptText(cmd, "Vercel deployment URL (optional, for validation)", cfg.Deployment.VercelURL)
	}

	return nil
}

func checkGitignore(cmd *cli.Command, label, dir string) {
	if dir == "" {
		return
	}

	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		warn(cmd, "%s .gitignore not found", label)
		return
	}

	if strings.Contains(string(content), ".env") {
		success(cmd, "%s .env already gitignored", label)
	} else {
		warn(cmd, "%s .env not in .gitignore (should be there by default)", label)
	}
}
