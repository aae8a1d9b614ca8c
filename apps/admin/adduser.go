package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if name == "" {
			name = email
		}
		now := core.Now()
		usr = user.User{
			Name:       name,
			Email:      email,
			Role:       user.RoleStudent,
			JobTitle:   user.JobOther,
			IsVerified: true,
			AvatarURL:  user.AvatarURL(name),
			CreatedAt:  now,
		}
	} else if name != "" {
		usr.Name = name
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = core.Now()

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
