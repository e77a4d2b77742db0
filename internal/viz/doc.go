// Package viz renders run summaries for the terminal: lipgloss styles
// shared with the figure viewer, and tables of solve times, voltage
// errors and cache entries.
package viz
