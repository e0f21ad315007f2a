package store

import (
	"context"
	"fmt"
	"os"

	"github.com/mlsorensen/gobodyscale"
	"gopkg.in/yaml.v3"
)

// Static always returns the same user.
type Static struct {
	User gobodyscale.UserProfile
}

func (s Static) ActiveUser(_ context.Context) (gobodyscale.UserProfile, error) {
	return s.User, nil
}

// ProfilesFile is the YAML layout of a profiles file.
type ProfilesFile struct {
	Active string                    `yaml:"active"`
	Users  []gobodyscale.UserProfile `yaml:"users"`
}

// YAMLProfiles reads the active user from a profiles file on every call, so
// edits take effect on the next session.
type YAMLProfiles struct {
	Path string
}

var _ gobodyscale.ProfileStore = YAMLProfiles{}

func (p YAMLProfiles) ActiveUser(_ context.Context) (gobodyscale.UserProfile, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return gobodyscale.UserProfile{}, fmt.Errorf("reading profiles file: %w", err)
	}

	var file ProfilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return gobodyscale.UserProfile{}, fmt.Errorf("parsing profiles file: %w", err)
	}

	return file.ActiveUser()
}

// ActiveUser returns the user named by Active, or the only user when Active is empty.
func (f ProfilesFile) ActiveUser() (gobodyscale.UserProfile, error) {
	if f.Active == "" {
		if len(f.Users) == 1 {
			return f.Users[0], f.Users[0].Validate()
		}
		return gobodyscale.UserProfile{}, fmt.Errorf("profiles file has %d users and no active user", len(f.Users))
	}

	for _, u := range f.Users {
		if u.Name == f.Active {
			if err := u.Validate(); err != nil {
				return gobodyscale.UserProfile{}, fmt.Errorf("user %q: %w", u.Name, err)
			}
			return u, nil
		}
	}
	return gobodyscale.UserProfile{}, fmt.Errorf("active user %q not found", f.Active)
}
