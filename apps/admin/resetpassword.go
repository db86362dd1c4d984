package main

import (
	"context"
	"time"

	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

// resetPassword resets a user's password. With a tenant subdomain the user
// is looked up among the shop's staff, otherwise among platform operators.
func (cli *commandLine) resetPassword(uname, subdomain, pwd string) error {
	ctx := context.Background()
	if subdomain != "" {
		tnt, err := cli.tenantSvc.GetBySubdomain(ctx, subdomain)
		if err != nil {
			return err
		}
		ctx = tenant.WithTenant(ctx, tnt)
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname}})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
