// Package file provides filesystem-backed stores: the JSON extraction cache
// and the line-delimited JSON record streams.
//
// Every write goes to a temp file in the target directory and is renamed
// into place, so readers never observe a partial file.
package file
