package repository

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/shell"
)

// SVNConnector talks to Subversion through the svn command line client
type SVNConnector struct {
	Command string // svn binary, default "svn"
	Runner  shell.Runner
}

// NewSVNConnector creates a connector that runs command through runner
func NewSVNConnector(command string, runner shell.Runner) *SVNConnector {
	if command == "" {
		command = "svn"
	}
	if runner == nil {
		runner = shell.NewExecutor(nil)
	}
	return &SVNConnector{Command: command, Runner: runner}
}

// Connect validates the repository URL; svn itself is stateless between calls
func (c *SVNConnector) Connect(ctx context.Context, creds Credentials) (Session, error) {
	u, err := url.Parse(creds.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository url %q: %w", creds.URL, err)
	}
	switch u.Scheme {
	case "svn", "svn+ssh", "http", "https", "file":
	default:
		return nil, fmt.Errorf("unsupported repository scheme %q", u.Scheme)
	}
	return &svnSession{connector: c, creds: creds}, nil
}

type svnSession struct {
	connector *SVNConnector
	creds     Credentials
}

func (s *svnSession) ListDirectory(ctx context.Context, path string) ([]Entry, error) {
	target := strings.TrimSuffix(s.creds.URL, "/")
	if p := strings.Trim(path, "/"); p != "" {
		target += "/" + p
	}

	cmd := shell.Command{Args: []string{s.connector.Command, "list", "--xml", "--non-interactive", "--no-auth-cache"}}
	if s.creds.Username != "" {
		cmd.Args = append(cmd.Args, "--username", s.creds.Username)
	}
	if s.creds.Password != "" {
		// the password stays out of argv
		cmd.Args = append(cmd.Args, "--password-from-stdin")
		cmd.Stdin = s.creds.Password + "\n"
	}
	cmd.Args = append(cmd.Args, target)

	result, err := s.connector.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("svn list %s failed: %w", target, err)
	}
	return ParseListXML([]byte(result.Stdout))
}

func (s *svnSession) Close() error { return nil }

type svnLists struct {
	Lists []struct {
		Entries []struct {
			Name   string `xml:"name"`
			Commit struct {
				Revision int64 `xml:"revision,attr"`
			} `xml:"commit"`
		} `xml:"entry"`
	} `xml:"list"`
}

// ParseListXML decodes the output of "svn list --xml"
func ParseListXML(data []byte) ([]Entry, error) {
	var doc svnLists
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse svn list output: %w", err)
	}

	var entries []Entry
	for _, list := range doc.Lists {
		for _, e := range list.Entries {
			entries = append(entries, Entry{Name: e.Name, Revision: e.Commit.Revision})
		}
	}
	return entries, nil
}
