// Package config manages user-level settings stored at ~/.hadup/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the download mirror host and the install root for provisioned dependencies.
package config
