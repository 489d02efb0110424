// Package fetch loads documents for filtering.
//
// A Fetcher retrieves pages over HTTP(S), optionally through a SOCKS5
// proxy, with a user agent, a timeout and a body size limit. LoadFile
// reads a local HTML file under the same size limit. Both return a
// model.Page that the filter command parses.
package fetch
