// Package resolve maps logical template names onto physical template files.
//
// A Handler searches an ordered theme chain (most specific first), trying a
// template-id variant (`name.<id>.tpl`) before the plain file (`name.tpl`) at
// every level before falling back to the theme-less location. Namespace
// listings merge theme results first-write-wins so the most specific theme
// keeps ownership of a resource key.
//
// Resolution is expressed on an explicit Scope. The Handler also keeps an
// active scope so template engines that call back by name (extends, include)
// resolve against the request that is currently rendering.
package resolve
