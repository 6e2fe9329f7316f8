package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/lupppig/obackup/internal/errors"
)

// ParseOdooConf extracts connection settings from an odoo.conf file.
// Odoo writes unset options as the literal string "False"; those are
// normalized to empty values.
func ParseOdooConf(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, apperrors.New(apperrors.TypeNotFound,
				fmt.Sprintf("config file not found: %s", path),
				"Point --odoo-conf at the instance's odoo.conf.")
		}
		return Profile{}, err
	}
	defer f.Close()

	options, ok := parseINISection(f, "options")
	if !ok {
		return Profile{}, apperrors.New(apperrors.TypeConfig,
			"no 'options' section found in config file",
			"An odoo.conf must contain an [options] section.")
	}

	get := func(key, def string) string {
		if v, ok := options[key]; ok {
			return v
		}
		return def
	}

	port, err := strconv.Atoi(get("db_port", "5432"))
	if err != nil {
		port = 5432
	}

	p := Profile{
		Host:           get("db_host", "localhost"),
		Port:           port,
		Database:       get("db_name", "False"),
		User:           get("db_user", "odoo"),
		Password:       get("db_password", "False"),
		ProductVersion: "17.0",
		Transport:      TransportLocal,
	}

	if dataDir := get("data_dir", ""); dataDir != "" && dataDir != "False" {
		p.FilestorePath = dataDir
	} else if home, err := os.UserHomeDir(); err == nil {
		p.FilestorePath = filepath.Join(home, ".local", "share", "Odoo")
	}

	if p.Database == "False" {
		p.Database = ""
	}
	if p.Password == "False" {
		p.Password = ""
	}

	return p, nil
}

// parseINISection reads the key=value pairs of one INI section. The odoo.conf
// dialect is plain enough (no quoting, no multiline values) that a line
// scanner covers it.
func parseINISection(f *os.File, section string) (map[string]string, bool) {
	values := map[string]string{}
	inSection := false
	found := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inSection = strings.Trim(line, "[]") == section
			if inSection {
				found = true
			}
			continue
		}
		if !inSection {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}

	return values, found
}
