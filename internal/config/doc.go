// Package config manages the user-level configuration file for the
// openzug tools.
//
// The file is YAML stored in the OS-appropriate configuration
// directory and holds named appliance entries (base URL, digest auth
// username, identity learned on first contact) plus polling
// preferences. Device passwords are never written to disk; they are
// prompted interactively when a command needs one.
package config
