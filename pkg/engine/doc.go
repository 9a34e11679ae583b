// Package engine wraps template engines with theme-aware resource resolution.
//
// Every engine implementation exposes the same small capability set (Engine)
// and is driven by one generic Adapter, which activates the resolution scope
// of a Template before delegating and clears it afterwards, including on
// failure. Render failures surface as *RenderError regardless of the engine.
package engine
