package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
	Services   []seedService  `yaml:"services"`
	Admins     []seedAdmin    `yaml:"admins"`
}

type seedCategory struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type seedService struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Category        string `yaml:"category"`
	PriceCents      int64  `yaml:"price_cents"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Active          *bool  `yaml:"active"`
}

// seedAdmin.IsAdmin stays untyped: exported sheets carry yes/1/"t"/true.
type seedAdmin struct {
	FullName    string `yaml:"full_name"`
	Email       string `yaml:"email"`
	Phone       string `yaml:"phone"`
	IsAdmin     any    `yaml:"is_admin"`
	PasswordEnv string `yaml:"password_env"`
}

func parseSeed(r io.Reader) (seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return seedFile{}, fmt.Errorf("parse seed: %w", err)
	}

	slugs := map[string]bool{}
	for i := range f.Categories {
		c := &f.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return seedFile{}, fmt.Errorf("categories[%d]: name is required", i)
		}
		if c.Slug = model.Slugify(c.Slug); c.Slug == "" {
			c.Slug = model.Slugify(c.Name)
		}
		slugs[c.Slug] = true
	}
	for i := range f.Services {
		s := &f.Services[i]
		if err := s.toModel("").Validate(); err != nil {
			return seedFile{}, fmt.Errorf("services[%d]: %w", i, err)
		}
		s.Category = model.Slugify(s.Category)
		if s.Category != "" && !slugs[s.Category] {
			return seedFile{}, fmt.Errorf("services[%d]: unknown category %q", i, s.Category)
		}
	}
	for i := range f.Admins {
		a := &f.Admins[i]
		a.Email = strings.ToLower(strings.TrimSpace(a.Email))
		if a.Email == "" || strings.TrimSpace(a.FullName) == "" {
			return seedFile{}, fmt.Errorf("admins[%d]: full_name and email are required", i)
		}
	}
	return f, nil
}

func (s seedService) toModel(categoryID string) model.Service {
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return model.Service{
		Name:            strings.TrimSpace(s.Name),
		Description:     strings.TrimSpace(s.Description),
		PriceCents:      s.PriceCents,
		DurationMinutes: s.DurationMinutes,
		CategoryID:      categoryID,
		Active:          active,
	}
}
