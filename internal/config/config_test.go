package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lupppig/obackup/internal/errors"
)

func TestProfileLookup(t *testing.T) {
	cfg := &Config{
		Profiles: []Profile{
			{Name: "prod", Host: "db.example.com", Database: "acme"},
			{Name: "staging", Host: "localhost", Database: "acme_stage"},
		},
		SSH: []SSHProfile{
			{Name: "prod-host", Host: "app.example.com", User: "odoo"},
		},
	}

	p, err := cfg.Profile("staging")
	require.NoError(t, err)
	assert.Equal(t, "acme_stage", p.Database)

	_, err = cfg.Profile("missing")
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	s, err := cfg.SSHProfile("prod-host")
	require.NoError(t, err)
	assert.Equal(t, "odoo", s.User)

	_, err = cfg.SSHProfile("missing")
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{
			name:    "complete local profile",
			profile: Profile{Host: "localhost", Database: "acme", Transport: TransportLocal},
		},
		{
			name:    "missing database",
			profile: Profile{Host: "localhost"},
			wantErr: true,
		},
		{
			name:    "missing host",
			profile: Profile{Database: "acme"},
			wantErr: true,
		},
		{
			name:    "ssh transport without ssh profile",
			profile: Profile{Host: "localhost", Database: "acme", Transport: TransportSSH},
			wantErr: true,
		},
		{
			name: "ssh transport with ssh profile",
			profile: Profile{
				Host: "localhost", Database: "acme",
				Transport: TransportSSH, SSHProfile: "prod-host",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.IsType(err, apperrors.TypeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseOdooConf(t *testing.T) {
	conf := `[options]
; database settings
db_host = db.internal
db_port = 5433
db_name = acme
db_user = acme_user
db_password = s3cret
data_dir = /srv/odoo/data
`
	path := filepath.Join(t.TempDir(), "odoo.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	p, err := ParseOdooConf(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", p.Host)
	assert.Equal(t, 5433, p.Port)
	assert.Equal(t, "acme", p.Database)
	assert.Equal(t, "acme_user", p.User)
	assert.Equal(t, "s3cret", p.Password)
	assert.Equal(t, "/srv/odoo/data", p.FilestorePath)
	assert.Equal(t, TransportLocal, p.Transport)
}

func TestParseOdooConf_Defaults(t *testing.T) {
	conf := `[options]
db_host = False
db_name = acme
db_password = False
`
	path := filepath.Join(t.TempDir(), "odoo.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	p, err := ParseOdooConf(path)
	require.NoError(t, err)
	assert.Equal(t, 5432, p.Port)
	assert.Equal(t, "odoo", p.User)
	assert.Empty(t, p.Password)
	// data_dir unset falls back to the stock Odoo location.
	assert.Contains(t, p.FilestorePath, filepath.Join(".local", "share", "Odoo"))
}

func TestParseOdooConf_MissingFile(t *testing.T) {
	_, err := ParseOdooConf(filepath.Join(t.TempDir(), "nope.conf"))
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestInitialize_MalformedExplicitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obackup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0o644))

	assert.Error(t, Initialize(path))
}

func TestInitialize_MalformedDiscoveredConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "obackup.yaml"), []byte("{{not yaml"), 0o644))
	t.Chdir(dir)

	// A broken discovered file warns and falls back to defaults instead
	// of failing the whole invocation.
	require.NoError(t, Initialize(""))
	assert.Equal(t, ".", GetConfig().BackupDir)
}

func TestParseOdooConf_NoOptionsSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odoo.conf")
	require.NoError(t, os.WriteFile(path, []byte("[other]\nkey = value\n"), 0o644))

	_, err := ParseOdooConf(path)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConfig))
}
