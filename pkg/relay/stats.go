// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package relay

import "time"

// Stats contains summary information about a running relay.
type Stats struct {
	Uptime           time.Duration `json:"uptime"`
	NumChannels      int           `json:"num_channels"`
	NumDevices       int           `json:"num_devices"`
	ConnectedDevices int           `json:"connected_devices"`
	ConnectedViewers int           `json:"connected_viewers"`
	MaxConnections   int           `json:"max_connections"`
	MaxConnectionsAt time.Time     `json:"max_connections_at"`
}

// Stats gets stats for this relay.
func (srv *Server) Stats() Stats {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	s := Stats{
		Uptime:           time.Since(srv.startedAt),
		NumChannels:      len(srv.channels),
		MaxConnections:   srv.maxConns,
		MaxConnectionsAt: srv.maxConnsTime,
	}
	for _, ch := range srv.channels {
		s.NumDevices += ch.DeviceCount()
		s.ConnectedDevices += ch.connectedDevices()
		s.ConnectedViewers += ch.connectedViewers()
	}
	return s
}
