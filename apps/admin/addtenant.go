package main

import (
	"context"

	"github.com/zargarco/zargar/core/tenant"
)

// addTenant registers a shop and provisions its schema.
func (cli *commandLine) addTenant(name, subdomain, plan string) error {
	ctx := context.Background()

	nt := tenant.NewTenant{Name: name, Subdomain: subdomain, Plan: plan}
	if err := nt.Validate(ctx, cli.validate, cli.tenantSvc); err != nil {
		return err
	}

	tnt, err := cli.tenantSvc.Create(ctx, nt)
	if err != nil {
		return err
	}
	logger.Printf("registered %s at %q (schema %s)", tnt.Name, tnt.Subdomain, tnt.SchemaName)
	return nil
}
