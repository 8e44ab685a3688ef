// Command avmoo serves the local catalog database: it repairs and loads the
// INI configuration, opens the SQLite store and exposes the cached read API.
package main
