package permission

// Catalog permission names.
const (
	CatalogRead  = "catalog:read"
	CatalogWrite = "catalog:write"
	UsersManage  = "users:manage"
)

// Catalog role names in canonical form.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// DefaultRoles returns a frozen manager with USER (read) and ADMIN (read,
// write, manage users).
func DefaultRoles() *RoleManager {
	reg := NewRegistry()
	for _, name := range []string{CatalogRead, CatalogWrite, UsersManage} {
		if _, err := reg.Register(name); err != nil {
			panic(err)
		}
	}
	reg.Freeze()

	rm := NewRoleManager(reg)
	if err := rm.RegisterRole(RoleUser, CatalogRead); err != nil {
		panic(err)
	}
	if err := rm.RegisterRole(RoleAdmin, CatalogRead, CatalogWrite, UsersManage); err != nil {
		panic(err)
	}
	rm.Freeze()
	return rm
}
