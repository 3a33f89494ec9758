package git

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Command is a git invocation built from typed arguments.
//
// Commands are passed to the executor as an argument vector, never through a
// shell, so paths may contain any byte except NUL. Paths always follow a single
// "--" separator and can therefore never be read as options. Command values are
// immutable: every builder method returns a modified copy.
type Command struct {
	verb  string
	args  []string
	paths []string
	err   error
}

// NewCommand starts a command for the given git subcommand (e.g. "add").
func NewCommand(verb string) Command {
	c := Command{verb: verb}
	if verb == "" || strings.HasPrefix(verb, "-") {
		c.err = errors.Wrapf(ErrInvalidArgument, "verb %q", verb)
	}
	return c
}

// Flag appends option flags such as "--cached" or "-q".
func (c Command) Flag(flags ...string) Command {
	for _, f := range flags {
		if !strings.HasPrefix(f, "-") {
			return c.fail(errors.Wrapf(ErrInvalidArgument, "flag %q does not start with '-'", f))
		}
	}
	c.args = append(slices.Clone(c.args), flags...)
	return c
}

// Option appends a flag followed by its value as a separate argument.
// The value is passed verbatim, so it may start with '-' or contain spaces.
func (c Command) Option(flag, value string) Command {
	if !strings.HasPrefix(flag, "-") {
		return c.fail(errors.Wrapf(ErrInvalidArgument, "option %q does not start with '-'", flag))
	}
	c.args = append(slices.Clone(c.args), flag, value)
	return c
}

// Rev appends a revision argument (commit SHA, branch, tree-ish).
// Empty revisions and revisions that look like options are rejected.
func (c Command) Rev(rev string) Command {
	switch {
	case rev == "":
		return c.fail(errors.Wrap(ErrInvalidArgument, "empty revision"))
	case strings.HasPrefix(rev, "-"):
		return c.fail(errors.Wrapf(ErrInvalidArgument, "revision %q looks like an option", rev))
	}
	c.args = append(slices.Clone(c.args), rev)
	return c
}

// Paths appends pathspecs. They are emitted after a "--" separator.
func (c Command) Paths(paths ...string) Command {
	for _, p := range paths {
		if p == "" {
			return c.fail(errors.Wrap(ErrEmptyPath, "pathspec"))
		}
		if strings.ContainsRune(p, 0) {
			return c.fail(errors.Wrapf(ErrInvalidArgument, "path %q contains NUL", p))
		}
	}
	c.paths = append(slices.Clone(c.paths), paths...)
	return c
}

// Verb returns the git subcommand.
func (c Command) Verb() string {
	return c.verb
}

// Err returns the first argument error recorded while building, if any.
func (c Command) Err() error {
	return c.err
}

// PathCount returns the number of pathspecs.
func (c Command) PathCount() int {
	return len(c.paths)
}

// Args returns the argument vector, excluding the git binary itself.
func (c Command) Args() []string {
	out := make([]string, 0, 2+len(c.args)+len(c.paths))
	out = append(out, c.verb)
	out = append(out, c.args...)
	if len(c.paths) > 0 {
		out = append(out, "--")
		out = append(out, c.paths...)
	}
	return out
}

// String renders the command for logs. Arguments are quoted when needed.
func (c Command) String() string {
	args := c.Args()
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "git")
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func (c Command) fail(err error) Command {
	if c.err == nil {
		c.err = err
	}
	return c
}
