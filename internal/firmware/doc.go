// Package firmware locates the firmware images for a charger update.
//
// Images live flat in one directory and are named
//
//	main_<sortable token>.signed.bin
//	rear_<sortable token>.signed.bin
//
// The latest image of each board is the lexicographically greatest file
// name. There is no semantic version comparison: the naming convention
// (date or zero-padded version tokens) must sort correctly as plain strings.
package firmware
