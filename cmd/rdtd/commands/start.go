// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rdtd/rdtd/pkg/api"
	"github.com/rdtd/rdtd/pkg/auth"
	"github.com/rdtd/rdtd/pkg/relay"
)

var log *logrus.Logger

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the relay and the backend API",
	Run:   runServer,
}

func init() {
	RootCmd.AddCommand(startCmd)

	startCmd.Flags().StringP("bind", "b", ":5050", "Bind the relay to host:port. Leave host empty to bind to all interfaces.")
	viper.BindPFlag("relay.bind", startCmd.Flags().Lookup("bind"))
	startCmd.Flags().StringP("api-bind", "a", ":5558", "Bind the backend API to host:port")
	viper.BindPFlag("api.bind", startCmd.Flags().Lookup("api-bind"))
	startCmd.Flags().String("db", "", "Path of the account database (default is $CONFDIR/accounts.db)")
	viper.BindPFlag("db.path", startCmd.Flags().Lookup("db"))

	viper.SetDefault("log.level", "debug")
}

func runServer(cmd *cobra.Command, args []string) {
	log = logrus.New()
	log.Out = os.Stderr
	log.Formatter = new(logrus.TextFormatter)
	if level, err := logrus.ParseLevel(viper.GetString("log.level")); err == nil {
		log.Level = level
	}

	dbPath := os.ExpandEnv(viper.GetString("db.path"))
	if dbPath == "" {
		dbPath = os.ExpandEnv("$CONFDIR/accounts.db")
	}
	store, err := auth.OpenStore(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	authSvc := auth.NewService(store, log)
	relaySrv, err := relay.NewServer(log, authSvc)
	if err != nil {
		log.Fatal(err)
	}
	backend := api.New(authSvc, relaySrv, log)

	log.Info("Starting rdtd")
	errCh := make(chan error, 2)
	go func() {
		errCh <- relaySrv.ListenAndServe(viper.GetString("relay.bind"))
	}()
	go func() {
		errCh <- backend.ListenAndServe(viper.GetString("api.bind"))
	}()
	log.Fatal(<-errCh)
}
