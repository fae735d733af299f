// Command formstack runs the form stack manager.
//
// The serve command owns the single UI goroutine that ticks the manager and
// drains completed asset loads, and serves the inspector API:
//
//	GET  /snapshot         groups, open forms and cache contents
//	POST /forms/open       open an asset in a group
//	POST /forms/close      close an open form
//	POST /forms/refocus    bring a form to the top of its group
//	GET  /events           websocket stream of form lifecycle events
//	GET  /metrics          prometheus metrics
//
// The assets command lists and optionally decodes the documents of an asset
// directory without starting the manager.
//
// Configuration is read from the environment and overridden by flags.
// Runtime settings (cache capacity, serial seed, log level) may live in a
// yaml, toml or json file that is reloaded on change.
package main
