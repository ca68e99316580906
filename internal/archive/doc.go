// Package archive persists decoded passport lines, one plain-text file per
// session, and refuses to continue when the log volume runs low on space.
package archive
