// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"fmt"
	"os"

	"github.com/howeyc/gopass"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rdtd/rdtd/pkg/auth"
)

var addUserSuperID string

// addUserCmd represents the adduser command
var addUserCmd = &cobra.Command{
	Use:   "adduser <phone>",
	Short: "Register a handset account directly in the local database",
	Long: `adduser creates a handset account without going through the backend API.
The server must not be running, as the account database is opened exclusively.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phone := args[0]

		fmt.Printf("Password: ")
		pass, err := gopass.GetPasswd()
		if err != nil {
			return err
		}

		dbPath := os.ExpandEnv(viper.GetString("db.path"))
		if dbPath == "" {
			dbPath = os.ExpandEnv("$CONFDIR/accounts.db")
		}
		store, err := auth.OpenStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		quiet := logrus.New()
		quiet.Out = os.Stderr
		quiet.Level = logrus.WarnLevel

		switch code := auth.NewService(store, quiet).Signup(phone, string(pass), addUserSuperID); code {
		case auth.ResultOK:
			fmt.Printf("Registered %s under %s\n", phone, addUserSuperID)
			return nil
		case auth.SignupExists:
			return errors.Errorf("%s is already registered", phone)
		default:
			return errors.New("Registration failed")
		}
	},
}

func init() {
	RootCmd.AddCommand(addUserCmd)
	addUserCmd.Flags().StringVarP(&addUserSuperID, "super", "s", "", "administrator id the handset belongs to")
	addUserCmd.MarkFlagRequired("super")
}
