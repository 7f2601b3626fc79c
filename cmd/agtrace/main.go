// Command agtrace is the thin CLI collaborator over the agtrace library:
// each subcommand parses its flags and hands the work to the root
// package or, for config-only commands such as init, to internal/config.
package main

func main() {
	Execute()
}
