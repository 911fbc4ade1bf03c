// Package cmd implements the dh CLI commands. Commands are urfave/cli
// constructors registered through an fx group; Run wires them into the root
// application and drives the process lifecycle.
package cmd
