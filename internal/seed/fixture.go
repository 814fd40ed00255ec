// Package seed loads sample identities, categories and service requests into
// a store. Loading is idempotent: rows whose natural key already exists are
// left untouched.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

//go:embed sample.yaml
var sampleFixture []byte

// Fixture is the YAML document accepted by the seeder.
type Fixture struct {
	Identities []IdentityFixture `yaml:"identities"`
	Categories []CategoryFixture `yaml:"categories"`
	Requests   []RequestFixture  `yaml:"requests"`
}

// IdentityFixture describes one account. Username is the natural key.
type IdentityFixture struct {
	Username       string      `yaml:"username"`
	Password       string      `yaml:"password"`
	Email          string      `yaml:"email"`
	FirstName      string      `yaml:"first_name"`
	LastName       string      `yaml:"last_name"`
	Role           domain.Role `yaml:"role"`
	PhoneNumber    string      `yaml:"phone_number"`
	Address        string      `yaml:"address"`
	CustomerNumber string      `yaml:"customer_number"`
	MeterID        string      `yaml:"meter_id"`
	ServiceAddress string      `yaml:"service_address"`
	Department     string      `yaml:"department"`
	EmployeeID     string      `yaml:"employee_id"`
}

// CategoryFixture describes one category. Slug is the natural key.
type CategoryFixture struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Inactive    bool   `yaml:"inactive"`
}

// RequestFixture describes a request filed by Customer (a username) under
// Category (a slug). Customer plus Title is the natural key.
type RequestFixture struct {
	Customer    string                 `yaml:"customer"`
	Category    string                 `yaml:"category"`
	Priority    domain.RequestPriority `yaml:"priority"`
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
}

// Sample returns the built-in fixture.
func Sample() (*Fixture, error) {
	return Parse(sampleFixture)
}

// LoadFile reads and parses a fixture from disk.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	fixture, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fixture, nil
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fixture.Validate(); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// Validate checks required fields and duplicate keys. Request references are
// resolved against the store at load time, so they may name rows seeded by an
// earlier fixture.
func (f *Fixture) Validate() error {
	usernames := make(map[string]bool, len(f.Identities))
	for i, identity := range f.Identities {
		if strings.TrimSpace(identity.Username) == "" {
			return fmt.Errorf("identities[%d]: username is required", i)
		}
		if identity.Password == "" {
			return fmt.Errorf("identities[%d] (%s): password is required", i, identity.Username)
		}
		if !identity.Role.Valid() {
			return fmt.Errorf("identities[%d] (%s): unknown role %q", i, identity.Username, identity.Role)
		}
		key := strings.ToLower(identity.Username)
		if usernames[key] {
			return fmt.Errorf("identities[%d]: duplicate username %q", i, identity.Username)
		}
		usernames[key] = true
	}

	slugs := make(map[string]bool, len(f.Categories))
	for i, category := range f.Categories {
		if strings.TrimSpace(category.Slug) == "" || strings.TrimSpace(category.Name) == "" {
			return fmt.Errorf("categories[%d]: slug and name are required", i)
		}
		if slugs[category.Slug] {
			return fmt.Errorf("categories[%d]: duplicate slug %q", i, category.Slug)
		}
		slugs[category.Slug] = true
	}

	for i, req := range f.Requests {
		if strings.TrimSpace(req.Customer) == "" || strings.TrimSpace(req.Category) == "" {
			return fmt.Errorf("requests[%d]: customer and category are required", i)
		}
		if strings.TrimSpace(req.Title) == "" {
			return fmt.Errorf("requests[%d]: title is required", i)
		}
		if req.Priority != "" && !req.Priority.Valid() {
			return fmt.Errorf("requests[%d]: unknown priority %q", i, req.Priority)
		}
	}
	return nil
}
