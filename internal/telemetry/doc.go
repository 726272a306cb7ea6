// Package telemetry polls a fastdeploy inference API for one server at a
// time.
//
// Client is the HTTP side: one method per endpoint, each taking a context.
// Session is the state side: the log buffer, latest metric snapshot and
// cached configuration for one server, plus single-flight tickets.
// Refresher runs tickets against a Source and Poller strings them together
// on a timer for headless use; the dashboard package drives the same
// tickets from its bubbletea loop.
//
// Every fetch is issued against a Ticket. A ticket records which slot it
// occupies, a sequence number and the log offset at issue time. Results
// are applied only while their ticket is current and the offset still
// matches, which keeps a late or duplicated response from corrupting the
// buffer.
package telemetry

import "time"

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 10 * time.Second
