// Package report describes the outcome of a transplant run and renders it as a console table, YAML, or JSON.
package report
