package web

import (
	"embed"
)

// staticFiles holds the gallery page and its assets.
//
//go:embed static/*
var staticFiles embed.FS
