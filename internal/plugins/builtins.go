// Package plugins aggregates the built-in plugins in their fixed load
// order. Built-ins register before external units, so on a name collision
// a built-in always wins.
package plugins

import (
	"github.com/aversine/adjutant/internal/plugin"
	"github.com/aversine/adjutant/internal/plugins/analyzer"
	"github.com/aversine/adjutant/internal/plugins/gcloud"
	"github.com/aversine/adjutant/internal/plugins/github"
	"github.com/aversine/adjutant/internal/plugins/project"
)

// All returns fresh instances of every built-in plugin, in load order.
func All() []plugin.Plugin {
	return []plugin.Plugin{
		analyzer.New(),
		project.New(),
		github.New(),
		gcloud.New(),
	}
}
