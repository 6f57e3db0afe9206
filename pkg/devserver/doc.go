// Package devserver implements the development server. It serves project
// files over HTTP, runs source modules through the configured plugin
// pipeline with a persistent transform cache, enforces the filesystem
// allow list, and watches the project for changes to invalidate cached
// transforms and notify connected clients.
package devserver
