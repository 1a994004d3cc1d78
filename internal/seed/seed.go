// Package seed loads starter users and departments from YAML and upserts them.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
	"github.com/cgportal/feedback-backend/internal/validation"
	"github.com/cgportal/feedback-backend/pkg/utils"
)

//go:embed defaults.yaml
var defaults []byte

type File struct {
	Users       []User       `yaml:"users"`
	Departments []Department `yaml:"departments"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Type     string `yaml:"type"`
	Active   *bool  `yaml:"active,omitempty"`
}

type Department struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Email       string `yaml:"email,omitempty"`
	ContactNo   string `yaml:"contactNo,omitempty"`
}

// Result counts what Apply changed.
type Result struct {
	UsersCreated       int
	UsersUpdated       int
	DepartmentsCreated int
	DepartmentsUpdated int
}

// Defaults returns the embedded starter data.
func Defaults() (*File, error) {
	return Parse(defaults)
}

// Load reads a seed file, or the embedded defaults when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		return Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	for i := range f.Users {
		u := &f.Users[i]
		in := validation.NewUser{Username: u.Username, Password: u.Password, Type: u.Type, Active: u.Active}
		in.Normalize()
		if err := validation.Struct(in); err != nil {
			return fmt.Errorf("user %d (%q): %w", i+1, u.Username, err)
		}
		u.Username, u.Type = in.Username, in.Type
	}
	for i := range f.Departments {
		d := &f.Departments[i]
		in := validation.DepartmentInput{Name: d.Name, Description: d.Description, Email: d.Email, ContactNo: d.ContactNo}
		in.Normalize()
		if err := validation.Struct(in); err != nil {
			return fmt.Errorf("department %d (%q): %w", i+1, d.Name, err)
		}
		d.Name, d.Description, d.Email, d.ContactNo = in.Name, in.Description, in.Email, in.ContactNo
	}
	return nil
}

// Apply upserts every user (by username) and department (by name).
// Passwords are stored hashed.
func Apply(ctx context.Context, f *File, users store.UserStore, depts store.DepartmentStore, log *zap.Logger) (Result, error) {
	var res Result

	for _, u := range f.Users {
		hash, err := utils.HashPassword(u.Password)
		if err != nil {
			return res, fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		active := true
		if u.Active != nil {
			active = *u.Active
		}
		typ, _ := models.ParseUserType(u.Type)
		created, err := users.Upsert(ctx, &models.User{
			Username: u.Username,
			Password: hash,
			Type:     typ,
			Active:   active,
		})
		if err != nil {
			return res, fmt.Errorf("upsert user %s: %w", u.Username, err)
		}
		if created {
			res.UsersCreated++
		} else {
			res.UsersUpdated++
		}
		log.Info("seeded user", zap.String("username", u.Username), zap.String("type", string(typ)), zap.Bool("created", created))
	}

	for _, d := range f.Departments {
		created, err := depts.Upsert(ctx, &models.Department{
			Name:        d.Name,
			Description: d.Description,
			Email:       d.Email,
			ContactNo:   d.ContactNo,
		})
		if err != nil {
			return res, fmt.Errorf("upsert department %s: %w", d.Name, err)
		}
		if created {
			res.DepartmentsCreated++
		} else {
			res.DepartmentsUpdated++
		}
		log.Info("seeded department", zap.String("name", d.Name), zap.Bool("created", created))
	}

	return res, nil
}
