package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/user"
)

func (cli *commandLine) resetPassword(email string, sp user.SetPassword) error {
	if err := sp.Validate(cli.validate); err != nil {
		return cli.validationError(err)
	}
	usr, err := cli.usrSvc.ChangePassword(context.Background(), email, sp.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %s updated\n", usr.Email)
	return nil
}
