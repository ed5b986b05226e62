// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"

	"github.com/olegiv/wingsite/internal/util"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ListSpec declares how one typed content list maps between its camelCase JSON
// shape and its table. Read scans "id" followed by Columns; Write returns the
// values for Columns in the same order.
type ListSpec[T any] struct {
	Type    ContentType
	Table   string
	Columns []string
	Read    func(row RowScanner) (T, error)
	Write   func(item T) ([]any, error)
	// Normalize, when set, fills derived fields before Write.
	Normalize func(item *T)
}

// Wing is one service "wing" of the company.
type Wing struct {
	ID          int64    `json:"id,omitempty"`
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Tagline     string   `json:"tagline"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
	Features    []string `json:"features"`
}

// Project is a portfolio entry.
type Project struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Client      string   `json:"client"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Link        string   `json:"link"`
	Tags        []string `json:"tags"`
	Featured    bool     `json:"featured"`
	Year        int      `json:"year"`
}

// Partner is a partnership or client logo.
type Partner struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	LogoURL     string `json:"logoUrl"`
	Website     string `json:"website"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Leader is a leadership team member.
type Leader struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Bio      string `json:"bio"`
	PhotoURL string `json:"photoUrl"`
	LinkedIn string `json:"linkedin"`
	Email    string `json:"email"`
}

// TechItem is one entry in the tech stack showcase.
type TechItem struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// WingList maps wings to the wings table.
var WingList = ListSpec[Wing]{
	Type:    TypeWings,
	Table:   "wings",
	Columns: []string{"wing_key", "title", "tagline", "description", "icon", "color", "features"},
	Read: func(row RowScanner) (Wing, error) {
		var w Wing
		var features string
		if err := row.Scan(&w.ID, &w.Key, &w.Title, &w.Tagline, &w.Description, &w.Icon, &w.Color, &features); err != nil {
			return w, err
		}
		var err error
		w.Features, err = decodeStrings(features)
		return w, err
	},
	Write: func(w Wing) ([]any, error) {
		features, err := encodeStrings(w.Features)
		if err != nil {
			return nil, err
		}
		return []any{w.Key, w.Title, w.Tagline, w.Description, w.Icon, w.Color, features}, nil
	},
}

// ProjectList maps projects to the projects table.
var ProjectList = ListSpec[Project]{
	Type:  TypeProjects,
	Table: "projects",
	Columns: []string{"title", "slug", "category", "client", "description",
		"image_url", "link", "tags", "featured", "year"},
	Read: func(row RowScanner) (Project, error) {
		var p Project
		var tags string
		if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.Client, &p.Description,
			&p.ImageURL, &p.Link, &tags, &p.Featured, &p.Year); err != nil {
			return p, err
		}
		var err error
		p.Tags, err = decodeStrings(tags)
		return p, err
	},
	Write: func(p Project) ([]any, error) {
		tags, err := encodeStrings(p.Tags)
		if err != nil {
			return nil, err
		}
		return []any{p.Title, p.Slug, p.Category, p.Client, p.Description,
			p.ImageURL, p.Link, tags, p.Featured, p.Year}, nil
	},
	Normalize: func(p *Project) {
		if p.Slug == "" {
			p.Slug = util.Slugify(p.Title)
		}
	},
}

// PartnerList maps partners to the partners table.
var PartnerList = ListSpec[Partner]{
	Type:    TypePartners,
	Table:   "partners",
	Columns: []string{"name", "logo_url", "website", "category", "description"},
	Read: func(row RowScanner) (Partner, error) {
		var p Partner
		err := row.Scan(&p.ID, &p.Name, &p.LogoURL, &p.Website, &p.Category, &p.Description)
		return p, err
	},
	Write: func(p Partner) ([]any, error) {
		return []any{p.Name, p.LogoURL, p.Website, p.Category, p.Description}, nil
	},
}

// TeamList maps leadership members to the leadership table.
var TeamList = ListSpec[Leader]{
	Type:    TypeTeam,
	Table:   "leadership",
	Columns: []string{"name", "role", "bio", "photo_url", "linkedin", "email"},
	Read: func(row RowScanner) (Leader, error) {
		var l Leader
		err := row.Scan(&l.ID, &l.Name, &l.Role, &l.Bio, &l.PhotoURL, &l.LinkedIn, &l.Email)
		return l, err
	},
	Write: func(l Leader) ([]any, error) {
		return []any{l.Name, l.Role, l.Bio, l.PhotoURL, l.LinkedIn, l.Email}, nil
	},
}

// TechStackList maps tech items to the tech_items table.
var TechStackList = ListSpec[TechItem]{
	Type:    TypeTechStack,
	Table:   "tech_items",
	Columns: []string{"name", "category", "icon", "description"},
	Read: func(row RowScanner) (TechItem, error) {
		var ti TechItem
		err := row.Scan(&ti.ID, &ti.Name, &ti.Category, &ti.Icon, &ti.Description)
		return ti, err
	},
	Write: func(ti TechItem) ([]any, error) {
		return []any{ti.Name, ti.Category, ti.Icon, ti.Description}, nil
	},
}

// encodeStrings stores a string list as a JSON array column.
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding list column: %w", err)
	}
	return string(b), nil
}

// decodeStrings reads a JSON array column; empty columns decode to an empty list.
func decodeStrings(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decoding list column: %w", err)
	}
	return values, nil
}
