// Package platform contains the small OS-specific shims the provisioner
// needs: permission bits (a no-op on Windows) and the privilege-elevation
// check that gates machine-scope environment writes.
package platform
