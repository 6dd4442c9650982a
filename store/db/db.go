// Package db selects the store.Driver implementation named by the profile,
// grounded on the teacher's own store/db dispatcher that cmd/divinesense's
// main.go calls (not itself part of the retrieved pack, but its calling
// convention is — db.NewDBDriver(profile) returning a store.Driver).
package db

import (
	"fmt"

	"leadwatch/internal/profile"
	"leadwatch/store"
	"leadwatch/store/db/postgres"
	"leadwatch/store/db/sqlite"
)

// NewDBDriver opens the backend named by profile.Driver ("sqlite" or
// "postgres"; profile.Validate already rejects anything else).
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", profile.Driver)
	}
}
