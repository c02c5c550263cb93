// Package file provides file-based adapters: the TOML configuration
// loader and the user-editable prompt store.
package file
