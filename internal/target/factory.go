package target

import (
	"github.com/lupppig/obackup/internal/config"
)

// ForProfile returns the Target matching a profile's transport, resolving
// the linked SSH profile through the store when needed.
func ForProfile(p config.Profile, store config.Store) (Target, error) {
	if p.Transport != config.TransportSSH {
		return NewLocalTarget(), nil
	}
	sshProfile, err := store.SSHProfile(p.SSHProfile)
	if err != nil {
		return nil, err
	}
	return NewSSHTarget(sshProfile), nil
}
