// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rdtd/rdtd/pkg/relay"
)

var statsPort string

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats [host]",
	Short: "Print stats from a running rdtd server",
	Long: `stats queries a server's backend API for running stats.

If the host is omitted, the local rdtd server will be queried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := "127.0.0.1"
		if len(args) > 0 {
			host = args[0]
		} else if _, port, err := net.SplitHostPort(viper.GetString("api.bind")); err == nil {
			// Use the local server's configured API port.
			statsPort = port
		}
		return getStats(host)
	},
}

func init() {
	RootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsPort, "port", "P", "5558", "backend API port of the server to query")
}

func getStats(host string) error {
	url := fmt.Sprintf("http://%s/api/stats", net.JoinHostPort(host, statsPort))
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return errors.Wrap(err, "Query stats")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("Server returned %s", resp.Status)
	}

	var stats relay.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return errors.Wrap(err, "Decode stats response")
	}

	fmt.Fprintf(os.Stdout, `Stats for %s:
Uptime: %s
Number of channels: %d
Registered devices: %d (%d connected)
Connected viewers: %d
Max connections: %d on %s
`, host, stats.Uptime,
		stats.NumChannels,
		stats.NumDevices, stats.ConnectedDevices,
		stats.ConnectedViewers,
		stats.MaxConnections, stats.MaxConnectionsAt)
	return nil
}
