// Package database drives the PostgreSQL client tools (pg_dump, psql,
// dropdb, createdb) for the dump/restore half of a backup. The tools run on
// this machine and reach the server over TCP; only filestore work goes
// through a target connection.
package database

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/lupppig/obackup/internal/config"
	apperrors "github.com/lupppig/obackup/internal/errors"
	"github.com/lupppig/obackup/internal/logger"
)

// requiredTools are the external binaries the engine shells out to.
var requiredTools = []string{"pg_dump", "pg_restore", "psql", "tar"}

type Postgres struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Postgres {
	return &Postgres{log: log}
}

// CheckDependencies verifies the client tools are on PATH.
func CheckDependencies() error {
	var missing []string
	for _, tool := range requiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.TypeConfig,
			fmt.Sprintf("missing dependencies: %s", strings.Join(missing, ", ")),
			"Install the PostgreSQL client tools and tar.")
	}
	return nil
}

// TestConnection pings the server's maintenance database with the profile's
// credentials.
func (p *Postgres) TestConnection(ctx context.Context, profile config.Profile) error {
	dsn := maintenanceDSN(profile)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return apperrors.Wrap(err, apperrors.TypeConfig, "failed to open connection", "Check the profile's host, port, and user.")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.TypeConnection, "failed to ping database server", "Verify the database host, port, and credentials.")
	}
	return nil
}

func maintenanceDSN(profile config.Profile) string {
	port := profile.Port
	if port == 0 {
		port = 5432
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(profile.User, profile.Password),
		Host:     fmt.Sprintf("%s:%d", profile.Host, port),
		Path:     "postgres",
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Backup dumps the profile's database into dir and returns the dump path.
// Ownership and ACL statements are stripped so the dump restores cleanly
// under a different role.
func (p *Postgres) Backup(ctx context.Context, profile config.Profile, dir string) (string, error) {
	dumpPath := filepath.Join(dir, profile.Database+".sql")

	args := append(connArgs(profile),
		"-d", profile.Database,
		"-f", dumpPath,
		"--no-owner",
		"--no-acl",
	)
	if profile.Verbose {
		args = append(args, "-v")
	}

	if err := p.run(ctx, profile, "pg_dump", args, nil); err != nil {
		return "", err
	}

	return dumpPath, nil
}

// Restore loads a dump into the profile's database, dropping and recreating
// it first. The dump is taken from dumpPath when non-empty, otherwise piped
// from dumpData.
//
// Once the existing database has been dropped there is no intermediate
// state to roll back to; a failure after that point leaves the destination
// empty and is logged accordingly by the caller.
func (p *Postgres) Restore(ctx context.Context, profile config.Profile, dumpPath string, dumpData io.Reader) error {
	exists, err := p.databaseExists(ctx, profile)
	if err != nil {
		return err
	}

	if exists {
		if p.log != nil {
			p.log.Info("Dropping existing database", "db", profile.Database)
		}
		if err := p.terminateSessions(ctx, profile); err != nil {
			return err
		}
		if err := p.run(ctx, profile, "dropdb", append(connArgs(profile), profile.Database), nil); err != nil {
			return err
		}
	}

	if p.log != nil {
		p.log.Info("Creating database", "db", profile.Database)
	}
	if err := p.run(ctx, profile, "createdb", append(connArgs(profile), profile.Database), nil); err != nil {
		return err
	}

	return p.run(ctx, profile, "psql", restoreArgs(profile, dumpPath), dumpData)
}

// restoreArgs builds the psql invocation: -f when the dump is a file on
// disk, stdin otherwise, quiet unless the profile asks for verbose output.
func restoreArgs(profile config.Profile, dumpPath string) []string {
	args := append(connArgs(profile), "-d", profile.Database)
	if dumpPath != "" {
		args = append(args, "-f", dumpPath)
	}
	if !profile.Verbose {
		args = append(args, "-q")
	}
	return args
}

// databaseExists checks the server's database listing for the profile's
// database name.
func (p *Postgres) databaseExists(ctx context.Context, profile config.Profile) (bool, error) {
	out, err := p.output(ctx, profile, "psql", append(connArgs(profile), "-lqt"))
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		name, _, _ := strings.Cut(line, "|")
		if strings.TrimSpace(name) == profile.Database {
			return true, nil
		}
	}
	return false, nil
}

// terminateSessions kicks every other backend off the database so the drop
// cannot block on open connections.
func (p *Postgres) terminateSessions(ctx context.Context, profile config.Profile) error {
	query := fmt.Sprintf(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s' AND pid <> pg_backend_pid();",
		profile.Database,
	)
	args := append(connArgs(profile), "-d", "postgres", "-c", query)

	// Termination is advisory; stragglers surface as a drop failure.
	_, _ = p.output(ctx, profile, "psql", args)
	return nil
}

func connArgs(profile config.Profile) []string {
	port := profile.Port
	if port == 0 {
		port = 5432
	}
	return []string{
		"-h", profile.Host,
		"-p", fmt.Sprintf("%d", port),
		"-U", profile.User,
	}
}

func (p *Postgres) run(ctx context.Context, profile config.Profile, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = toolEnv(profile)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return apperrors.Wrap(err, apperrors.TypeTool,
			fmt.Sprintf("%s failed: %s", name, strings.TrimSpace(stderr.String())),
			"Inspect the tool output above; the server logs may have more detail.")
	}
	return nil
}

func (p *Postgres) output(ctx context.Context, profile config.Profile, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = toolEnv(profile)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", apperrors.Wrap(err, apperrors.TypeTool,
			fmt.Sprintf("%s failed: %s", name, strings.TrimSpace(stderr.String())), "")
	}
	return stdout.String(), nil
}

func toolEnv(profile config.Profile) []string {
	env := os.Environ()
	if profile.Password != "" {
		env = append(env, "PGPASSWORD="+profile.Password)
	}
	return env
}
