// Package events defines the topics and typed payloads of the events
// published on the bus.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/stagehand/internal/event"
)

// Git event topics.
const (
	// TopicGitStatusChanged is published when the index or working tree changes.
	TopicGitStatusChanged event.Topic = "git.status.changed"

	// TopicGitBranchChanged is published when the current branch may have moved.
	TopicGitBranchChanged event.Topic = "git.branch.changed"

	// TopicGitCommitCreated is published when a commit is made.
	TopicGitCommitCreated event.Topic = "git.commit.created"

	// TopicGitAll matches every git topic.
	TopicGitAll event.Topic = "git.**"
)

// GitStatusChanged is published when repository status changes.
type GitStatusChanged struct {
	// Repository is the working tree root.
	Repository string

	// Action names what changed: stage, unstage, resolve, commit,
	// reset_commit, or watch for changes seen on disk.
	Action string

	// Paths lists the affected paths, when known.
	Paths []string

	Timestamp time.Time
}

// GitBranchChanged is published when the current branch may have moved.
type GitBranchChanged struct {
	Repository string
	Branch     string
	Previous   string
	Timestamp  time.Time
}

// GitCommitCreated is published after a commit or amend.
type GitCommitCreated struct {
	Repository string
	Message    string
	Amend      bool
	Timestamp  time.Time
}

// Decode converts a git envelope into its typed payload. It returns nil for
// topics outside the git namespace.
func Decode(env event.Envelope) any {
	data := env.Data()
	repo := stringField(data, "repository")
	ts := timeField(data, env.Metadata.Timestamp)

	switch env.Topic {
	case TopicGitStatusChanged:
		return GitStatusChanged{
			Repository: repo,
			Action:     stringField(data, "action"),
			Paths:      stringsField(data, "paths"),
			Timestamp:  ts,
		}
	case TopicGitBranchChanged:
		return GitBranchChanged{
			Repository: repo,
			Branch:     stringField(data, "branch"),
			Previous:   stringField(data, "previous"),
			Timestamp:  ts,
		}
	case TopicGitCommitCreated:
		amend, _ := data["amend"].(bool)
		return GitCommitCreated{
			Repository: repo,
			Message:    stringField(data, "message"),
			Amend:      amend,
			Timestamp:  ts,
		}
	default:
		return nil
	}
}

// Describe renders a git envelope as one human-readable line.
func Describe(env event.Envelope) string {
	switch p := Decode(env).(type) {
	case GitStatusChanged:
		if len(p.Paths) == 0 {
			return fmt.Sprintf("status changed (%s)", p.Action)
		}
		return fmt.Sprintf("status changed (%s): %s", p.Action, strings.Join(p.Paths, ", "))
	case GitBranchChanged:
		if p.Previous == "" || p.Previous == p.Branch {
			return fmt.Sprintf("on branch %s", p.Branch)
		}
		return fmt.Sprintf("branch %s -> %s", p.Previous, p.Branch)
	case GitCommitCreated:
		verb := "committed"
		if p.Amend {
			verb = "amended"
		}
		subject, _, _ := strings.Cut(p.Message, "\n")
		return fmt.Sprintf("%s: %s", verb, subject)
	default:
		return env.Topic.String()
	}
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringsField(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// timeField reads the millisecond timestamp set by the publisher, falling
// back to the envelope time.
func timeField(data map[string]any, fallback time.Time) time.Time {
	if ms, ok := data["timestamp"].(int64); ok {
		return time.UnixMilli(ms)
	}
	return fallback
}
