package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/sirupsen/logrus"
)

var errNotConfigured = errors.New("repository url or client not configured")

// Outcome classifies how a listing ended
type Outcome int

const (
	// OutcomeListed means the directory was listed
	OutcomeListed Outcome = iota
	// OutcomeTrunk means the trunk sentinel was answered without a network call
	OutcomeTrunk
	// OutcomeListFailed means credentials, connection or listing failed
	OutcomeListFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeListed:
		return "listed"
	case OutcomeTrunk:
		return "trunk"
	case OutcomeListFailed:
		return "list_failed"
	default:
		return "unknown"
	}
}

// Result holds entry names newest first
type Result struct {
	Names   []string
	Outcome Outcome
	Err     error
}

// Joined returns the names as a comma list; empty on failure
func (r Result) Joined() string {
	return Join(r.Names)
}

// PasswordResolver turns a configured password into the one sent to the server
type PasswordResolver interface {
	Resolve(value string) (string, error)
}

// Lister is the repository listing adapter
type Lister struct {
	connector Connector
	passwords PasswordResolver
	logger    logrus.FieldLogger
}

// NewLister creates a lister; passwords may be nil when no credential store is configured
func NewLister(connector Connector, passwords PasswordResolver, logger logrus.FieldLogger) *Lister {
	return &Lister{
		connector: connector,
		passwords: passwords,
		logger:    logging.OrDiscard(logger),
	}
}

// List returns the entries under path, newest revision first.
// No failure is returned as an error; see Result.Outcome.
func (l *Lister) List(ctx context.Context, creds Credentials, path string) Result {
	if path == TrunkPath {
		return Result{Names: []string{TrunkPath}, Outcome: OutcomeTrunk}
	}

	log := l.logger.WithFields(logrus.Fields{
		"repository": creds.URL,
		"path":       path,
	})

	fail := func(err error, msg string) Result {
		log.WithError(err).Warn(msg)
		return Result{Outcome: OutcomeListFailed, Err: err}
	}

	if strings.TrimSpace(creds.URL) == "" || l.connector == nil {
		return fail(errNotConfigured, "repository listing not configured")
	}

	if l.passwords != nil {
		password, err := l.passwords.Resolve(creds.Password)
		if err != nil {
			return fail(err, "repository password could not be resolved")
		}
		creds.Password = password
	}

	session, err := l.connector.Connect(ctx, creds)
	if err != nil {
		return fail(err, "repository connection failed")
	}
	defer func() { _ = session.Close() }()

	entries, err := session.ListDirectory(ctx, path)
	if err != nil {
		return fail(err, "repository listing failed")
	}

	log.WithField("entries", len(entries)).Debug("repository listed")
	return Result{Names: NewestFirst(entries), Outcome: OutcomeListed}
}
