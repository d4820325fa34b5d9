// Package config loads rxdata configuration.
//
// Configuration comes from a TOML file overlaid with RXDATA_* environment
// variables. A missing file is not an error; defaults apply.
//
//	[store]
//	driver = "sqlite"          # memory, jsonfile, sqlite or postgres
//	path = "data/rx.db"        # jsonfile and sqlite
//	dsn = ""                   # postgres
//	watch = false              # jsonfile only
//	debounce = "100ms"
//
//	[log]
//	verbosity = 0
//
//	[[kinds]]
//	name = "note"
//	url_root = "/notes"
//	id_attribute = "id"
//	sort_by = "rank"
//	descending = false
//	validator = "validators/note.lua"
//	defaults = { done = false }
//
// Relative store paths and validator paths are resolved against the
// directory of the configuration file.
package config
