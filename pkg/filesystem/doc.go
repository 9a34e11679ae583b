// Package filesystem provides the file lookup primitives the resolver relies
// on: existence checks that hand back a readable file, directory listings that
// may span several template roots, and root-relative path derivation.
//
// The default implementation is an afero-backed Browser so callers can mount
// OS directories, in-memory trees or embedded fs.FS values behind the same
// contract.
package filesystem
