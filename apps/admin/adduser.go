package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/user"
)

// addUser registers a user.User after applying the password policy.
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return cli.validationError(err)
	}
	usr, err := cli.usrSvc.Register(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s (%s) created with id %d\n", usr.Email, usr.Role, usr.ID)
	return nil
}
