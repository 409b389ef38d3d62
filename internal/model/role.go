package model

import "slices"

// Permission codes checked by the API.
const (
	PermDocumentsRead  = "documents.read"
	PermDocumentsWrite = "documents.write"
	PermPartiesRead    = "parties.read"
	PermPartiesWrite   = "parties.write"
	PermItemsRead      = "items.read"
	PermItemsWrite     = "items.write"
	PermKhataRead      = "khata.read"
	PermKhataWrite     = "khata.write"
	PermReportsRead    = "reports.read"
	PermTaxRulesRead   = "tax_rules.read"
	PermTaxRulesWrite  = "tax_rules.write"
	PermUsersRead      = "users.read"
	PermUsersWrite     = "users.write"
	PermAuditRead      = "audit.read"
)

var rolePermissions = map[string][]string{
	RoleAccountant: {
		PermDocumentsRead, PermDocumentsWrite,
		PermPartiesRead, PermPartiesWrite,
		PermItemsRead, PermItemsWrite,
		PermKhataRead, PermKhataWrite,
		PermReportsRead,
		PermTaxRulesRead, PermTaxRulesWrite,
		PermAuditRead,
	},
	RoleStaff: {
		PermDocumentsRead, PermDocumentsWrite,
		PermPartiesRead,
		PermItemsRead,
		PermKhataRead,
		PermTaxRulesRead,
	},
}

// RoleHasPermission reports whether role grants perm. Admin holds every permission.
func RoleHasPermission(role, perm string) bool {
	if role == RoleAdmin {
		return true
	}
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsFor lists the permissions granted to role.
func PermissionsFor(role string) []string {
	if role == RoleAdmin {
		all := make([]string, 0, 16)
		seen := map[string]bool{}
		for _, perms := range rolePermissions {
			for _, p := range perms {
				if !seen[p] {
					seen[p] = true
					all = append(all, p)
				}
			}
		}
		all = append(all, PermUsersRead, PermUsersWrite)
		slices.Sort(all)
		return all
	}
	return slices.Clone(rolePermissions[role])
}
