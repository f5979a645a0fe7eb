// Package gcloud is the built-in plugin wrapping the gcloud command line
// tool for Google Cloud project management and App Engine deployment.
package gcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/plugin"
)

// Plugin wraps gcloud. Commands that can run long (deploy, auth) pick
// their own timeouts above the configured default.
type Plugin struct {
	invoker *invoke.Runner
	timeout time.Duration

	installed bool
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string        { return "gcloud" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string { return "Google Cloud project management" }

func (p *Plugin) Init(rt *plugin.InitContext) error {
	if rt.Invoker == nil {
		return fmt.Errorf("gcloud plugin requires an invoker")
	}
	p.invoker = rt.Invoker
	p.timeout = rt.DefaultTimeout
	p.installed = p.invoker.Run(context.Background(), "gcloud", []string{"version"}, 10*time.Second).Success
	return nil
}

func (p *Plugin) Commands() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		"check-setup":    p.checkSetup,
		"auth-login":     p.authLogin,
		"projects":       p.projects,
		"set-project":    p.setProject,
		"get-project":    p.getProject,
		"create-project": p.createProject,
		"deploy":         p.deploy,
		"status":         p.status,
	}
}

func (p *Plugin) Cleanup() error { return nil }

var installSuggestions = []string{
	"Install the Google Cloud CLI: https://cloud.google.com/sdk/docs/install",
}

func (p *Plugin) run(ctx context.Context, timeout time.Duration, args ...string) invoke.Result {
	if timeout <= 0 {
		timeout = p.timeout
	}
	return p.invoker.Run(ctx, "gcloud", args, timeout)
}

func (p *Plugin) runJSON(ctx context.Context, v any, args ...string) invoke.Result {
	return p.invoker.RunJSON(ctx, "gcloud", args, p.timeout, v)
}

// Account is one entry from gcloud auth list.
type Account struct {
	Account string `json:"account"`
	Status  string `json:"status"`
}

// SetupStatus is the output of gcloud:check-setup.
type SetupStatus struct {
	Installed      bool      `json:"gcloud_installed"`
	Authenticated  bool      `json:"authenticated"`
	CurrentProject string    `json:"current_project,omitempty"`
	Accounts       []Account `json:"auth_accounts,omitempty"`
	Status         string    `json:"status"`
}

func (p *Plugin) checkSetup(ctx context.Context, call plugin.Call) plugin.Result {
	if !p.installed {
		return plugin.Result{
			Success:     true,
			Output:      SetupStatus{Status: "needs_setup"},
			Suggestions: installSuggestions,
		}
	}

	status := SetupStatus{Installed: true, Status: "needs_setup"}

	var accounts []Account
	if res := p.runJSON(ctx, &accounts, "auth", "list", "--format=json"); res.Success {
		status.Accounts = accounts
		status.Authenticated = len(accounts) > 0
	}
	if res := p.run(ctx, 0, "config", "get-value", "project"); res.Success {
		status.CurrentProject = strings.TrimSpace(res.Stdout)
	}

	if status.Authenticated && status.CurrentProject != "" {
		status.Status = "ready"
	}

	var suggestions []string
	if !status.Authenticated {
		suggestions = append(suggestions, "Authenticate: gcloud:auth-login")
	}
	if status.CurrentProject == "" {
		suggestions = append(suggestions, "Set a project: gcloud:set-project PROJECT_ID")
	}
	return plugin.Result{Success: true, Output: status, Suggestions: suggestions}
}

func (p *Plugin) authLogin(ctx context.Context, call plugin.Call) plugin.Result {
	if !p.installed {
		return plugin.FailWith("gcloud is not installed", installSuggestions...)
	}

	res := p.run(ctx, 2*time.Minute, "auth", "login")
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Try: gcloud auth login --no-browser")
		return r
	}
	return plugin.Ok(map[string]string{
		"message": "Authenticated with Google Cloud",
	})
}

// Project is one entry from gcloud projects list.
type Project struct {
	ProjectID      string `json:"projectId"`
	Name           string `json:"name"`
	ProjectNumber  string `json:"projectNumber"`
	LifecycleState string `json:"lifecycleState"`
}

func (p *Plugin) projects(ctx context.Context, call plugin.Call) plugin.Result {
	if !p.installed {
		return plugin.FailWith("gcloud is not installed", installSuggestions...)
	}

	var projects []Project
	res := p.runJSON(ctx, &projects, "projects", "list", "--format=json")
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Authenticate first: gcloud:auth-login")
		return r
	}
	return plugin.Ok(map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

func (p *Plugin) setProject(ctx context.Context, call plugin.Call) plugin.Result {
	projectID := call.Arg(0, "")
	if projectID == "" {
		return plugin.Fail("project ID is required")
	}

	res := p.run(ctx, 0, "config", "set", "project", projectID)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions,
			"Verify you have access to this project",
			"List available projects: gcloud:projects",
		)
		return r
	}
	return plugin.Ok(map[string]string{"project_id": projectID})
}

func (p *Plugin) getProject(ctx context.Context, call plugin.Call) plugin.Result {
	res := p.run(ctx, 0, "config", "get-value", "project")
	if !res.Success {
		return plugin.FromInvoke(res)
	}

	projectID := strings.TrimSpace(res.Stdout)
	if projectID == "" {
		return plugin.FailWith("no project set", "Set one: gcloud:set-project PROJECT_ID")
	}

	// Enrich with project details when possible; the ID alone is still a
	// valid answer.
	var details json.RawMessage
	if info := p.runJSON(ctx, &details, "projects", "describe", projectID, "--format=json"); info.Success {
		return plugin.Ok(map[string]any{
			"project_id": projectID,
			"details":    details,
		})
	}
	return plugin.Ok(map[string]any{"project_id": projectID})
}

func (p *Plugin) createProject(ctx context.Context, call plugin.Call) plugin.Result {
	projectID := call.Arg(0, "")
	if projectID == "" {
		return plugin.Fail("project ID is required")
	}

	args := []string{"projects", "create", projectID}
	if name := call.Opt("name", ""); name != "" {
		args = append(args, "--name", name)
	}

	res := p.run(ctx, time.Minute, args...)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions,
			"Project IDs must be globally unique",
			"Use only lowercase letters, numbers and hyphens, 6-30 characters",
		)
		return r
	}
	return plugin.Ok(map[string]string{"project_id": projectID})
}

func (p *Plugin) deploy(ctx context.Context, call plugin.Call) plugin.Result {
	appYAML := call.Arg(0, "app.yaml")
	if _, err := os.Stat(appYAML); err != nil {
		return plugin.FailWith(
			fmt.Sprintf("app.yaml not found at %s", appYAML),
			"Create app.yaml first, or pass the correct path",
		)
	}

	res := p.run(ctx, 10*time.Minute, "app", "deploy", appYAML, "--quiet")
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions,
			"Check the app.yaml syntax",
			"Ensure App Engine is initialized for the project",
		)
		return r
	}
	return plugin.Ok(map[string]string{
		"message":  "Application deployed",
		"app_yaml": appYAML,
	})
}

// AppEngine summarizes gcloud app describe.
type AppEngine struct {
	Initialized   bool   `json:"initialized"`
	ID            string `json:"id,omitempty"`
	Location      string `json:"locationId,omitempty"`
	ServingStatus string `json:"servingStatus,omitempty"`
}

func (p *Plugin) status(ctx context.Context, call plugin.Call) plugin.Result {
	setup := p.checkSetup(ctx, call)
	if !setup.Success {
		return setup
	}
	base := setup.Output.(SetupStatus)
	out := map[string]any{"setup": base}

	if base.Installed && base.Authenticated {
		var app AppEngine
		if res := p.runJSON(ctx, &app, "app", "describe", "--format=json"); res.Success {
			app.Initialized = true
		}
		out["app_engine"] = app
	}
	return plugin.Result{Success: true, Output: out, Suggestions: setup.Suggestions}
}
