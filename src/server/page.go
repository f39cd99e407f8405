package server

import _ "embed"

// dashboardPage is the whole browser UI: a single self-contained page that
// talks to the JSON API and the websocket.
//
//go:embed static/index.html
var dashboardPage []byte
