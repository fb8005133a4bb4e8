// Command cracklens runs crack analysis plans with memoized results.
package main

func main() {
	Execute()
}
