// Package github is the built-in plugin wrapping the git and gh command
// line tools for repository management.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aversine/adjutant/internal/invoke"
	"github.com/aversine/adjutant/internal/plugin"
)

// Plugin wraps git and gh. Tool availability is probed once at Init and
// reported through check-setup; individual commands still fail cleanly with
// ToolNotInstalled when a tool disappears later.
type Plugin struct {
	invoker *invoke.Runner
	timeout time.Duration

	gitInstalled bool
	ghInstalled  bool
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string        { return "github" }
func (p *Plugin) Version() string     { return "1.0.0" }
func (p *Plugin) Description() string { return "GitHub integration and repository management" }

func (p *Plugin) Init(rt *plugin.InitContext) error {
	if rt.Invoker == nil {
		return fmt.Errorf("github plugin requires an invoker")
	}
	p.invoker = rt.Invoker
	p.timeout = rt.DefaultTimeout

	probe := 10 * time.Second
	p.gitInstalled = p.invoker.Run(context.Background(), "git", []string{"--version"}, probe).Success
	p.ghInstalled = p.invoker.Run(context.Background(), "gh", []string{"--version"}, probe).Success
	return nil
}

func (p *Plugin) Commands() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		"check-setup": p.checkSetup,
		"setup-git":   p.setupGit,
		"auth-status": p.authStatus,
		"whoami":      p.whoami,
		"create-repo": p.createRepo,
		"clone":       p.clone,
		"init":        p.initRepo,
		"status":      p.status,
		"commit":      p.commit,
		"push":        p.push,
		"pull":        p.pull,
		"list-repos":  p.listRepos,
		"repo-info":   p.repoInfo,
	}
}

func (p *Plugin) Cleanup() error { return nil }

func (p *Plugin) git(ctx context.Context, args ...string) invoke.Result {
	return p.invoker.Run(ctx, "git", args, p.timeout)
}

func (p *Plugin) gh(ctx context.Context, args ...string) invoke.Result {
	return p.invoker.Run(ctx, "gh", args, p.timeout)
}

// ghJSON runs gh and decodes its stdout into v. A decode failure is the
// MalformedOutput class, never a raw unmarshal error.
func (p *Plugin) ghJSON(ctx context.Context, v any, args ...string) invoke.Result {
	return p.invoker.RunJSON(ctx, "gh", args, p.timeout, v)
}

// SetupStatus is the output of github:check-setup.
type SetupStatus struct {
	GitInstalled     bool              `json:"git_installed"`
	GhInstalled      bool              `json:"gh_cli_installed"`
	GitConfigured    bool              `json:"git_configured"`
	GhAuthenticated  bool              `json:"gh_authenticated"`
	GitUser          map[string]string `json:"git_user,omitempty"`
	Status           string            `json:"status"`
}

func (p *Plugin) checkSetup(ctx context.Context, call plugin.Call) plugin.Result {
	status := SetupStatus{
		GitInstalled: p.gitInstalled,
		GhInstalled:  p.ghInstalled,
		Status:       "needs_setup",
	}

	if !p.gitInstalled {
		return plugin.Result{
			Success: true,
			Output:  status,
			Suggestions: []string{
				"Install git: https://git-scm.com/downloads",
			},
		}
	}

	if res := p.git(ctx, "config", "--global", "--list"); res.Success {
		status.GitUser = map[string]string{}
		for _, line := range strings.Split(res.Stdout, "\n") {
			if v, ok := strings.CutPrefix(line, "user.name="); ok {
				status.GitUser["name"] = v
			}
			if v, ok := strings.CutPrefix(line, "user.email="); ok {
				status.GitUser["email"] = v
			}
		}
		status.GitConfigured = status.GitUser["name"] != "" && status.GitUser["email"] != ""
	}

	if p.ghInstalled {
		status.GhAuthenticated = p.gh(ctx, "auth", "status").Success
	}

	switch {
	case status.GitConfigured && status.GhInstalled && status.GhAuthenticated:
		status.Status = "ready"
	case status.GitConfigured:
		status.Status = "partial"
	}

	var suggestions []string
	if !status.GitConfigured {
		suggestions = append(suggestions, "Configure git: github:setup-git NAME EMAIL")
	}
	if !status.GhAuthenticated {
		suggestions = append(suggestions, "Authenticate: gh auth login")
	}
	return plugin.Result{Success: true, Output: status, Suggestions: suggestions}
}

func (p *Plugin) setupGit(ctx context.Context, call plugin.Call) plugin.Result {
	name := call.Arg(0, "")
	email := call.Arg(1, "")
	if name == "" || email == "" {
		return plugin.Fail("name and email are required")
	}

	if res := p.git(ctx, "config", "--global", "user.name", name); !res.Success {
		return plugin.FromInvoke(res)
	}
	if res := p.git(ctx, "config", "--global", "user.email", email); !res.Success {
		return plugin.FromInvoke(res)
	}
	// Best effort; a failure here doesn't undo the identity config.
	p.git(ctx, "config", "--global", "init.defaultBranch", "main")

	return plugin.Ok(map[string]string{
		"message": fmt.Sprintf("Git configured for %s <%s>", name, email),
		"name":    name,
		"email":   email,
	})
}

func (p *Plugin) authStatus(ctx context.Context, call plugin.Call) plugin.Result {
	res := p.gh(ctx, "auth", "status")
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Authenticate: gh auth login")
		return r
	}
	// gh prints auth status on stderr.
	out := res.Stdout
	if out == "" {
		out = res.Stderr
	}
	return plugin.Ok(strings.TrimSpace(out))
}

// User is the subset of the gh api user payload surfaced by whoami.
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"created_at"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
}

func (p *Plugin) whoami(ctx context.Context, call plugin.Call) plugin.Result {
	var user User
	res := p.ghJSON(ctx, &user, "api", "user")
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Authenticate first: gh auth login")
		return r
	}
	return plugin.Ok(user)
}

func (p *Plugin) createRepo(ctx context.Context, call plugin.Call) plugin.Result {
	name := call.Arg(0, "")
	if name == "" {
		return plugin.Fail("repository name is required")
	}

	args := []string{"repo", "create", name}
	if desc := call.Opt("description", ""); desc != "" {
		args = append(args, "--description", desc)
	}
	if call.Opt("private", "false") == "true" {
		args = append(args, "--private")
	} else {
		args = append(args, "--public")
	}

	res := p.gh(ctx, args...)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions,
			"Check if the repository name is available",
			"Repository names must be unique in your account",
		)
		return r
	}
	visibility := "public"
	if call.Opt("private", "false") == "true" {
		visibility = "private"
	}
	return plugin.Ok(map[string]string{
		"repository": name,
		"visibility": visibility,
	})
}

func (p *Plugin) clone(ctx context.Context, call plugin.Call) plugin.Result {
	url := call.Arg(0, "")
	if url == "" {
		return plugin.Fail("repository URL is required")
	}

	args := []string{"clone", url}
	if dir := call.Arg(1, ""); dir != "" {
		args = append(args, dir)
	}

	res := p.git(ctx, args...)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions,
			"Check if the repository URL is correct",
			"Ensure you have access to the repository",
		)
		return r
	}

	target := call.Arg(1, "")
	if target == "" {
		target = strings.TrimSuffix(url[strings.LastIndex(url, "/")+1:], ".git")
	}
	return plugin.Ok(map[string]string{
		"repository": url,
		"directory":  target,
	})
}

func (p *Plugin) initRepo(ctx context.Context, call plugin.Call) plugin.Result {
	dir := call.Arg(0, ".")

	res := p.git(ctx, "init", dir)
	if !res.Success {
		return plugin.FromInvoke(res)
	}
	return plugin.Ok(map[string]string{
		"message":   "Git repository initialized",
		"directory": dir,
	})
}

// RepoStatus is the output of github:status.
type RepoStatus struct {
	IsGitRepo    bool              `json:"is_git_repo"`
	HasChanges   bool              `json:"has_changes"`
	ChangesCount int               `json:"changes_count"`
	Branch       string            `json:"branch,omitempty"`
	Remotes      map[string]string `json:"remotes,omitempty"`
}

func (p *Plugin) status(ctx context.Context, call plugin.Call) plugin.Result {
	res := p.git(ctx, "status", "--porcelain")
	if !res.Success {
		return plugin.FromInvoke(res)
	}

	status := RepoStatus{IsGitRepo: true}
	out := strings.TrimSpace(res.Stdout)
	if out != "" {
		status.HasChanges = true
		status.ChangesCount = len(strings.Split(out, "\n"))
	}

	if branch := p.git(ctx, "branch", "--show-current"); branch.Success {
		status.Branch = strings.TrimSpace(branch.Stdout)
	}
	if remotes := p.git(ctx, "remote", "-v"); remotes.Success && remotes.Stdout != "" {
		status.Remotes = map[string]string{}
		for _, line := range strings.Split(strings.TrimSpace(remotes.Stdout), "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if _, ok := status.Remotes[fields[0]]; !ok {
					status.Remotes[fields[0]] = fields[1]
				}
			}
		}
	}
	return plugin.Ok(status)
}

func (p *Plugin) commit(ctx context.Context, call plugin.Call) plugin.Result {
	message := call.Arg(0, "")
	if message == "" {
		return plugin.Fail("commit message is required")
	}

	status := p.git(ctx, "status", "--porcelain")
	if !status.Success {
		return plugin.FromInvoke(status)
	}
	if strings.TrimSpace(status.Stdout) == "" {
		return plugin.Ok(map[string]string{"message": "No changes to commit", "status": "clean"})
	}

	if res := p.git(ctx, "add", "."); !res.Success {
		return plugin.FromInvoke(res)
	}
	res := p.git(ctx, "commit", "-m", message)
	if !res.Success {
		return plugin.FromInvoke(res)
	}
	return plugin.Ok(map[string]string{
		"message":        "Changes committed",
		"commit_message": message,
	})
}

func (p *Plugin) push(ctx context.Context, call plugin.Call) plugin.Result {
	remote := call.Opt("remote", "origin")
	branch := p.resolveBranch(ctx, call)

	res := p.git(ctx, "push", remote, branch)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions,
			"Check if the remote repository exists",
			fmt.Sprintf("Try: git push --set-upstream %s %s", remote, branch),
		)
		return r
	}
	return plugin.Ok(map[string]string{"remote": remote, "branch": branch})
}

func (p *Plugin) pull(ctx context.Context, call plugin.Call) plugin.Result {
	remote := call.Opt("remote", "origin")
	branch := p.resolveBranch(ctx, call)

	res := p.git(ctx, "pull", remote, branch)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Resolve any merge conflicts, then retry")
		return r
	}
	return plugin.Ok(map[string]string{
		"remote": remote,
		"branch": branch,
		"output": strings.TrimSpace(res.Stdout),
	})
}

func (p *Plugin) resolveBranch(ctx context.Context, call plugin.Call) string {
	if branch := call.Opt("branch", ""); branch != "" {
		return branch
	}
	if res := p.git(ctx, "branch", "--show-current"); res.Success {
		if b := strings.TrimSpace(res.Stdout); b != "" {
			return b
		}
	}
	return "main"
}

// Repo is one entry from gh repo list --json.
type Repo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	UpdatedAt   string `json:"updatedAt"`
}

func (p *Plugin) listRepos(ctx context.Context, call plugin.Call) plugin.Result {
	limit := call.Opt("limit", "10")

	var repos []Repo
	res := p.ghJSON(ctx, &repos, "repo", "list", "--limit", limit,
		"--json", "name,description,visibility,updatedAt")
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Authenticate first: gh auth login")
		return r
	}
	return plugin.Ok(map[string]any{
		"repositories": repos,
		"count":        len(repos),
	})
}

func (p *Plugin) repoInfo(ctx context.Context, call plugin.Call) plugin.Result {
	args := []string{"repo", "view"}
	if name := call.Arg(0, ""); name != "" {
		args = append(args, name)
	}
	args = append(args, "--json", "name,description,visibility,stargazerCount,forkCount,createdAt,updatedAt")

	var info json.RawMessage
	res := p.ghJSON(ctx, &info, args...)
	if !res.Success {
		r := plugin.FromInvoke(res)
		r.Suggestions = append(r.Suggestions, "Check the repository name and your permissions")
		return r
	}
	return plugin.Ok(info)
}
