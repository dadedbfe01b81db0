package daemon

import (
	"bytes"
	"io"
	"regexp"
	"sync"
	"time"
)

// IssueType identifies a known problem reported in the daemon's output.
type IssueType string

const (
	IssueNone        IssueType = ""
	IssueRepoLocked  IssueType = "repo_locked"
	IssueRepoMissing IssueType = "repo_missing"
	IssueAddrInUse   IssueType = "addr_in_use"
	IssueMigration   IssueType = "migration_required"
)

// Issue is a problem detected in one line of daemon output.
type Issue struct {
	Type       IssueType
	DetectedAt time.Time
	Message    string // the output line
}

// Hint describes the issue for a person.
func (i *Issue) Hint() string {
	switch i.Type {
	case IssueRepoLocked:
		return "the repository is locked by another daemon"
	case IssueRepoMissing:
		return "no repository found, run 'ipfs init' first"
	case IssueAddrInUse:
		return "an API or swarm address is already in use"
	case IssueMigration:
		return "the repository needs a migration"
	default:
		return i.Message
	}
}

// Checked in order; the first match wins.
var issuePatterns = []struct {
	typ      IssueType
	patterns []*regexp.Regexp
}{
	{IssueRepoLocked, []*regexp.Regexp{
		regexp.MustCompile(`(?i)someone else has the lock`),
		regexp.MustCompile(`(?i)repo\.lock`),
		regexp.MustCompile(`(?i)lock .* already held`),
	}},
	{IssueRepoMissing, []*regexp.Regexp{
		regexp.MustCompile(`(?i)no IPFS repo found`),
		regexp.MustCompile(`(?i)please run: 'ipfs init'`),
	}},
	{IssueAddrInUse, []*regexp.Regexp{
		regexp.MustCompile(`(?i)address already in use`),
		regexp.MustCompile(`(?i)only one usage of each socket address`),
	}},
	{IssueMigration, []*regexp.Regexp{
		regexp.MustCompile(`(?i)fs-repo-migrations`),
		regexp.MustCompile(`(?i)repo needs migration`),
		regexp.MustCompile(`(?i)version .* is lower than your repo`),
	}},
}

// DetectIssue checks a line for a known problem. It returns nil for
// ordinary output.
func DetectIssue(line string) *Issue {
	for _, group := range issuePatterns {
		for _, p := range group.patterns {
			if p.MatchString(line) {
				return &Issue{Type: group.typ, DetectedAt: time.Now(), Message: line}
			}
		}
	}
	return nil
}

// issueScanner passes daemon output through to an optional writer and
// remembers the last known problem it saw.
type issueScanner struct {
	out io.Writer

	mu      sync.Mutex
	partial []byte
	last    *Issue
}

func newIssueScanner(out io.Writer) *issueScanner {
	return &issueScanner{out: out}
}

func (s *issueScanner) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.partial = append(s.partial, p...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		s.scan(string(bytes.TrimRight(s.partial[:i], "\r")))
		s.partial = s.partial[i+1:]
	}
	// Bound a runaway line without a newline.
	if len(s.partial) > 64*1024 {
		s.scan(string(s.partial))
		s.partial = nil
	}
	s.mu.Unlock()

	if s.out == nil {
		return len(p), nil
	}
	return s.out.Write(p)
}

func (s *issueScanner) scan(line string) {
	if issue := DetectIssue(line); issue != nil {
		s.last = issue
	}
}

// Issue returns the last problem seen, including one on an unterminated
// final line.
func (s *issueScanner) Issue() *Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.partial) > 0 {
		s.scan(string(s.partial))
		s.partial = nil
	}
	return s.last
}
