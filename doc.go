// Package zabbixsender sends item values to a Zabbix server or proxy over the
// trapper protocol.
//
// Values travel as a JSON "sender data" request wrapped in a ZBXD frame,
// optionally zlib compressed. The server answers with a frame whose info
// line reports how many values were processed and how many failed.
//
// The module is organised as:
//   - internal/protocol: ZBXD frame encoding and decoding
//   - internal/response: parsing of the server's info line
//   - internal/sender: one request/response exchange per connection
//   - internal/trapper: a trapper emulator that stores received values
//   - internal/agent: collection of runtime and system values
//
// Three commands are built on top: zabbix_sender (a command line sender),
// trapper (the emulator with an HTTP API) and agent (a periodic reporter).
//
// The trapper and agent support configuration via command-line flags
// and environment variables.
package zabbixsender
