// Command deobf recovers readable names for an obfuscated program by
// fingerprinting its known feature areas.
package main

func main() {
	Execute()
}
