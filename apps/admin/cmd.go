package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
	"github.com/zargarco/zargar/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *database.DB
	tenantSvc tenant.Service
	usrRepo   user.Repository
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply registry migrations and re-provision all tenant schemas")
	fmt.Println("  addtenant -name NAME -subdomain SUBDOMAIN [-plan PLAN] - register a shop and provision its schema")
	fmt.Println("  addsuperuser -username USERNAME -email EMAIL - create or promote a platform operator")
	fmt.Println("  resetpassword -username USERNAME|EMAIL [-tenant SUBDOMAIN] - reset a user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTenantCmd := flag.NewFlagSet("addtenant", flag.ExitOnError)
	addTenantName := addTenantCmd.String("name", "", "The shop's display name.")
	addTenantSubdomain := addTenantCmd.String("subdomain", "", "The shop's subdomain under the base domain.")
	addTenantPlan := addTenantCmd.String("plan", "", "Billing plan: basic, pro or enterprise. Defaults to basic.")

	addSuperUserCmd := flag.NewFlagSet("addsuperuser", flag.ExitOnError)
	addSuperUserUname := addSuperUserCmd.String("username", "", "The operator's username. The password will be prompted next.")
	addSuperUserEmail := addSuperUserCmd.String("email", "", "The operator's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")
	resetPasswordTenant := resetPasswordCmd.String("tenant", "", "The shop's subdomain; leave empty for platform operators.")

	switch args[1] {
	case "migrate":
		return cli.migrate()

	case "addtenant":
		if err := addTenantCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTenantName == "" || *addTenantSubdomain == "" {
			addTenantCmd.Usage()
			return errHelp
		}
		return cli.addTenant(*addTenantName, *addTenantSubdomain, *addTenantPlan)

	case "addsuperuser":
		if err := addSuperUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSuperUserUname == "" || *addSuperUserEmail == "" {
			addSuperUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addSuperUserCmd.Usage()
			return errHelp
		}
		return cli.addSuperUser(*addSuperUserUname, *addSuperUserEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, *resetPasswordTenant, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
