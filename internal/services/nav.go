package services

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive-backend/internal/routes"
	"github.com/taskhive/taskhive-backend/internal/types"
)

//go:embed nav.yaml
var navYAML []byte

type NavLink struct {
	Path     string `yaml:"path" json:"path"`
	LabelKey string `yaml:"label" json:"label_key"`
}

type navTable struct {
	Base   []NavLink            `yaml:"base"`
	Roles  map[string][]NavLink `yaml:"roles"`
	Common []NavLink            `yaml:"common"`
}

// NavService assembles the visible menu as a pure function of the
// effective role. No I/O after construction.
type NavService interface {
	BuildNav(effectiveRole types.Role, isAdminIdentity bool) []NavLink
}

type navService struct {
	table navTable
}

func NewNavService() (NavService, error) {
	var table navTable
	if err := yaml.Unmarshal(navYAML, &table); err != nil {
		return nil, fmt.Errorf("parse nav table: %w", err)
	}
	if len(table.Base) == 0 {
		return nil, fmt.Errorf("nav table has no base links")
	}
	return &navService{table: table}, nil
}

// BuildNav concatenates base, role-specific and common links. Links for
// roles other than the effective one never appear, with one exception:
// an admin browsing under an override keeps the admin console entry as
// the way back.
func (ns *navService) BuildNav(effectiveRole types.Role, isAdminIdentity bool) []NavLink {
	out := make([]NavLink, 0, len(ns.table.Base)+len(ns.table.Common)+4)
	seen := map[string]bool{}
	add := func(links []NavLink) {
		for _, l := range links {
			if seen[l.Path] {
				continue
			}
			seen[l.Path] = true
			out = append(out, l)
		}
	}
	add(ns.table.Base)
	add(ns.table.Roles[string(effectiveRole)])
	if isAdminIdentity && effectiveRole != types.RoleAdmin {
		add([]NavLink{{Path: routes.AdminDashboard, LabelKey: "nav.admin_dashboard"}})
	}
	add(ns.table.Common)
	return out
}
