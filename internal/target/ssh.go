package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/lupppig/obackup/internal/config"
	apperrors "github.com/lupppig/obackup/internal/errors"
)

// Connection setup (dial, banner, auth) shares one deadline; running
// commands have none and block until the remote stream closes.
const sshSetupTimeout = 10 * time.Second

// SSHTarget executes commands on a remote host over SSH and transfers files
// over SFTP. The connection is opened lazily on first use.
type SSHTarget struct {
	profile config.SSHProfile
	client  *ssh.Client
}

func NewSSHTarget(profile config.SSHProfile) *SSHTarget {
	return &SSHTarget{profile: profile}
}

func (t *SSHTarget) connect() error {
	if t.client != nil {
		return nil
	}

	host := t.profile.Host
	port := t.profile.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	cfg := &ssh.ClientConfig{
		User:            t.profile.User,
		Timeout:         sshSetupTimeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	if t.profile.KeyPath != "" {
		key, err := os.ReadFile(t.profile.KeyPath)
		if err != nil {
			return apperrors.Wrap(err, apperrors.TypeAuth,
				fmt.Sprintf("cannot read private key %s", t.profile.KeyPath),
				"Check the key_path on the SSH profile.")
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return apperrors.Wrap(err, apperrors.TypeAuth, "cannot parse private key",
				"The key file must be an unencrypted PEM private key.")
		}
		cfg.Auth = append(cfg.Auth, ssh.PublicKeys(signer))
	} else if t.profile.Password != "" {
		cfg.Auth = append(cfg.Auth, ssh.Password(t.profile.Password))
	}

	if len(cfg.Auth) == 0 {
		return apperrors.New(apperrors.TypeAuth, "no SSH authentication method configured",
			"Set key_path or password on the SSH profile.")
	}

	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return classifyDialError(err, addr)
	}

	t.client = client
	return nil
}

// classifyDialError splits SSH setup failures into the three kinds the
// caller reacts to differently: timeout, rejected credentials, everything
// else on the wire.
func classifyDialError(err error, addr string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(err, apperrors.TypeTimeout,
			fmt.Sprintf("connection to %s timed out", addr),
			"Check host reachability and the SSH port.")
	}
	if strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "permission denied") {
		return apperrors.Wrap(err, apperrors.TypeAuth,
			fmt.Sprintf("authentication to %s failed", addr),
			"Verify the SSH username, password, or key.")
	}
	return apperrors.Wrap(err, apperrors.TypeConnection,
		fmt.Sprintf("failed to connect to %s", addr),
		"Check host reachability, SSH port, and credentials.")
}

func (t *SSHTarget) Exec(ctx context.Context, command string) (ExecResult, error) {
	if err := t.connect(); err != nil {
		return ExecResult{}, err
	}

	session, err := t.client.NewSession()
	if err != nil {
		return ExecResult{}, apperrors.Wrap(err, apperrors.TypeConnection,
			"failed to open SSH session", "The connection may have dropped; retry the operation.")
	}
	defer session.Close()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	res := ExecResult{}
	err = session.Run(command)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, nil
		}
		return res, apperrors.Wrap(err, apperrors.TypeConnection,
			fmt.Sprintf("remote command failed to run: %s", command), "")
	}
	return res, nil
}

func (t *SSHTarget) OpenTransfer() (Transfer, error) {
	if err := t.connect(); err != nil {
		return nil, err
	}

	client, err := sftp.NewClient(t.client)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TypeConnection, "failed to open SFTP session",
			"Verify the SFTP subsystem is enabled on the remote host.")
	}
	return &sftpTransfer{client: client}, nil
}

func (t *SSHTarget) Local() bool { return false }

func (t *SSHTarget) Close() error {
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

type sftpTransfer struct {
	client *sftp.Client
}

func (st *sftpTransfer) Download(ctx context.Context, remotePath, localPath string) error {
	src, err := st.client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (st *sftpTransfer) Upload(ctx context.Context, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer src.Close()

	if err := st.client.MkdirAll(sftpDir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote directory: %w", err)
	}

	dst, err := st.client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func (st *sftpTransfer) Close() error {
	return st.client.Close()
}

// sftpDir is filepath.Dir for remote paths, which are always /-separated.
func sftpDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
