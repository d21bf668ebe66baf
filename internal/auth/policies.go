package auth

import (
	"fmt"

	"go-archive-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

// DefaultPolicies are the route permissions of the archive. Visitors browse and may
// try to unlock; admins additionally mutate the tree.
var DefaultPolicies = [][]string{
	{SubjectVisitor, "/", "GET"},
	{SubjectVisitor, "/node/*", "GET"},
	{SubjectVisitor, "/search", "GET"},
	{SubjectVisitor, "/api/nodes", "GET"},
	{SubjectVisitor, "/api/nodes/*", "GET"},
	{SubjectVisitor, "/api/tree", "GET"},
	{SubjectVisitor, "/api/search", "GET"},
	{SubjectVisitor, "/robots.txt", "GET"},
	{SubjectVisitor, "/sitemap.xml", "GET"},
	{SubjectVisitor, "/admin/unlock", "GET"},
	{SubjectVisitor, "/admin/unlock", "POST"},

	{SubjectAdmin, "/admin/lock", "POST"},
	{SubjectAdmin, "/api/admin/*", "*"},
}

// SeedDefaultPolicies adds any missing default policy and the admin -> visitor role
// link. It is idempotent and runs on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Debug("Seeding default authorization policies")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}
	if has, _ := e.HasRoleForUser(SubjectAdmin, SubjectVisitor); !has {
		if _, err := e.AddRoleForUser(SubjectAdmin, SubjectVisitor); err != nil {
			log.Error(err, "Failed to add role 'admin' -> 'visitor'")
		}
	}
}
