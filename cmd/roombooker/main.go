// Command roombooker books University of Guelph library study rooms.
package main

func main() {
	Execute()
}
