package main

import (
	"context"

	"github.com/zargarco/zargar/storage/database"
)

var migratePublicFunc = database.MigratePublic // mockable

// migrate applies pending registry migrations, then re-provisions every
// registered tenant schema. Provisioning is idempotent: an existing schema
// only receives its pending migrations.
func (cli *commandLine) migrate() error {
	if err := migratePublicFunc(cli.db); err != nil {
		return err
	}

	ctx := context.Background()
	tenants, err := cli.tenantSvc.Query(ctx, nil, nil)
	if err != nil {
		return err
	}
	for _, tnt := range tenants {
		if err = cli.tenantSvc.Provision(ctx, tnt.ID); err != nil {
			return err
		}
		logger.Printf("migrated %s (%s)", tnt.Subdomain, tnt.SchemaName)
	}
	return nil
}
