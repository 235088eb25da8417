// Package assets embeds the web client served by the server.
// index.html is generated from index.html.tpl by cmd/minify.
package assets

import _ "embed"

//go:embed index.html
var Index []byte

//go:embed favicon.svg
var Favicon []byte
