// Package ips reads, writes, applies and creates IPS patches.
//
// # File Format
//
//	"PATCH"
//	repeated:
//	    offset  3 bytes, big-endian
//	    length  2 bytes, big-endian
//	    length > 0: length literal bytes          (Record)
//	    length == 0: count 2 bytes BE, value 1 byte (Fill)
//	"EOF"
//	optional metadata (JSON object)
//
// An instruction offset equal to the bytes "EOF" (0x454F46) cannot be
// written, since a reader takes it for the terminator. Diff never produces
// one: a record that would start there starts one byte earlier instead.
//
// # Lifecycle
//
// A Patch comes from Parse or Load (a patch file) or from Diff (two images).
// Apply and IsApplied run against any Target, such as a *block.Block or a
// *rom.Rom, and check first that the target is large enough.
//
// A global offset shifts every instruction down when loading, for patches
// made against an image with a prefix the target lacks. Instructions that
// fall before the start of the target are dropped.
package ips
