// Package envstore is the single seam through which persistent environment
// state flows. Dependency home paths (JAVA_HOME, HADOOP_HOME, ...) are
// registered here after installation and read back by later provisioning
// stages; the store also refreshes the current process's view after steps
// that mutate environment state out-of-band.
package envstore
