// dataNERD is a conversational analyst for delimited text datasets. It
// loads a CSV, profiles it, and answers questions through a bounded
// LLM tool dispatch loop.
package main

func main() {
	Execute()
}
