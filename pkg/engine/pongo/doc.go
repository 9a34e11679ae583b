// Package pongo implements engine.Engine on top of pongo2.
//
// Every template load, including extends and include targets, goes through a
// pongo2.TemplateLoader backed by resolve.Handler, so the active theme chain
// and template id decide which physical file is compiled. Compiled templates
// are kept in one pongo2.TemplateSet per compile id; the sets live in a
// go-cache store that Flush empties, optionally driven by a fsnotify Watcher.
//
// Template sources may carry `{* ... *}` block comments; they are removed
// before compilation.
package pongo
