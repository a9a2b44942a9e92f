// Package chain defines the ordered dependency chain the provisioner
// installs. The chain ships with built-in defaults (JDK, Hadoop, Hive,
// Spark) and can be overridden by a YAML chain manifest validated against
// an embedded JSON schema.
package chain
